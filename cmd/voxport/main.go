// voxport is a CLI utility for converting MagicaVoxel .vox files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/voxport/internal/config"
	"github.com/Faultbox/voxport/internal/export"
	"github.com/Faultbox/voxport/internal/importer"
	"github.com/Faultbox/voxport/internal/logger"
	"github.com/Faultbox/voxport/internal/texture"
	"github.com/Faultbox/voxport/pkg/formats"
	"github.com/Faultbox/voxport/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "export", "x":
		err = cmdExport(args)
	case "atlas":
		err = cmdAtlas(args)
	case "split":
		err = cmdSplit(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`voxport - MagicaVoxel .vox converter

Usage:
  voxport <command> [options]

Commands:
  info <file.vox>               Show models, scene nodes and materials
  export <file.vox> [out.glb]   Convert to binary glTF
  atlas <file.vox> [dir]        Write palette and material strips (TGA, BMP or PNG)
  split <file.vox> <z>          Report a body/head split at height z

Options (all commands):
  -config <path>    Config file (default ./voxport.yaml or user config dir)
  -profile <name>   Target profile: blender, vrm
  -encoding <name>  Color encoding: none, separate_materials, vertex_color, texture
  -scale <size>     Voxel size in world units
  -lights           Create point lights for emissive voxels
  -split-head <z>   Split models at height z before meshing
  -out <dir>        Output directory
  -atlas-format <f> Atlas image format: tga, bmp, png
  -debug            Enable debug logging

Examples:
  voxport info meebit.vox
  voxport export -profile vrm meebit.vox meebit.glb
  voxport atlas meebit.vox.zst ./textures
  voxport split meebit.vox 50`)
}

// setup parses flags, loads configuration and starts logging. It returns the
// positional arguments.
func setup(name string, args []string, minArgs int, usage string) (*config.Config, []string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < minArgs {
		fmt.Fprintln(os.Stderr, "Usage: voxport "+usage)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

func cmdInfo(args []string) error {
	cfg, rest, err := setup("info", args, 1, "info <file.vox>")
	if err != nil {
		return err
	}

	res, err := importer.Import(rest[0], cfg.Import)
	if err != nil {
		return err
	}
	vox := res.Scene
	stats := vox.Stats()

	fmt.Printf("File:      %s\n", rest[0])
	fmt.Printf("Version:   %d\n", vox.Version)
	fmt.Printf("Checksum:  %016x\n", res.Checksum)
	fmt.Printf("Models:    %d\n", stats.Models)
	fmt.Printf("Voxels:    %d\n", stats.Voxels)
	fmt.Printf("Colors:    %d\n", stats.Colors)
	fmt.Printf("Nodes:     %d (%d transforms, %d groups, %d shapes)\n",
		stats.Nodes, stats.Transforms, stats.Groups, stats.Shapes)
	if !vox.HasPalette {
		fmt.Println("Palette:   default")
	}
	if stats.Skipped > 0 {
		fmt.Printf("Skipped:   %d unknown chunks\n", stats.Skipped)
	}
	fmt.Println()

	fmt.Println("Models:")
	for _, m := range res.Models {
		faces := 0
		for _, f := range m.Fragments {
			faces += len(f.Faces)
		}
		fmt.Printf("  %-3d %-20s size %dx%dx%d  at (%d,%d,%d)  %d voxels  %d faces\n",
			m.ID, m.Name, m.Size.X, m.Size.Y, m.Size.Z,
			m.Position.X, m.Position.Y, m.Position.Z, m.Model.Len(), faces)
	}

	printMaterials(vox)

	for _, w := range res.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

// printMaterials lists the used colors whose material differs from the default.
func printMaterials(vox *formats.VOX) {
	used := make(map[uint8]bool)
	for _, m := range vox.Models {
		for _, c := range m.UsedColors() {
			used[c] = true
		}
	}
	var ids []int
	for id := range used {
		if vox.Material(id) != formats.DefaultVOXMaterial {
			ids = append(ids, int(id))
		}
	}
	if len(ids) == 0 {
		return
	}
	sort.Ints(ids)

	fmt.Println()
	fmt.Println("Materials:")
	for _, id := range ids {
		m := vox.Material(uint8(id))
		fmt.Printf("  %-3d rough %.2f  metal %.2f  glass %.2f  emit %.2f\n",
			id, m.Roughness, m.Metallic, m.Transmission, m.Emission)
	}
}

func cmdExport(args []string) error {
	cfg, rest, err := setup("export", args, 1, "export <file.vox> [out.glb]")
	if err != nil {
		return err
	}

	res, err := importer.Import(rest[0], cfg.Import)
	if err != nil {
		return err
	}

	out := filepath.Join(cfg.Output.Dir, res.Name+".glb")
	if len(rest) > 1 {
		out = rest[1]
	}
	if err := export.WriteGLB(res, cfg.Import, out); err != nil {
		return err
	}
	if cfg.Output.Atlas && res.Encoding == mesh.EncodingTexture {
		if err := writeAtlas(res, filepath.Dir(out), cfg.Output.AtlasFormat); err != nil {
			return err
		}
	}

	fmt.Printf("Wrote %s (%d models, %s)\n", out, len(res.Models), res.Encoding)
	return nil
}

func cmdAtlas(args []string) error {
	cfg, rest, err := setup("atlas", args, 1, "atlas <file.vox> [dir]")
	if err != nil {
		return err
	}

	res, err := importer.Import(rest[0], cfg.Import)
	if err != nil {
		return err
	}

	dir := cfg.Output.Dir
	if len(rest) > 1 {
		dir = rest[1]
	}
	return writeAtlas(res, dir, cfg.Output.AtlasFormat)
}

// writeAtlas writes <name>_palette and <name>_materials strips to dir.
func writeAtlas(res *importer.Result, dir, format string) error {
	f, err := texture.ParseFormat(format)
	if err != nil {
		return err
	}
	palette, materials := res.PaletteStrip, res.MaterialStrip
	if palette == nil {
		palette = mesh.PaletteStrip(res.Scene)
	}
	if materials == nil {
		materials = mesh.MaterialStrip(res.Scene)
	}

	palettePath := filepath.Join(dir, res.Name+"_palette"+f.Ext())
	if err := texture.WriteFile(palettePath, palette, f); err != nil {
		return err
	}
	materialsPath := filepath.Join(dir, res.Name+"_materials"+f.Ext())
	if err := texture.WriteFile(materialsPath, materials, f); err != nil {
		return err
	}

	logger.Info("wrote atlas", zap.String("palette", palettePath), zap.String("materials", materialsPath))
	fmt.Printf("Wrote %s\nWrote %s\n", palettePath, materialsPath)
	return nil
}

func cmdSplit(args []string) error {
	cfg, rest, err := setup("split", args, 2, "split <file.vox> <z>")
	if err != nil {
		return err
	}

	z, err := strconv.Atoi(rest[1])
	if err != nil || z < 0 || z > 255 {
		return fmt.Errorf("split height must be 0..255, got %q", rest[1])
	}
	cfg.Import.SplitHead = true
	cfg.Import.SplitHeadAt = z

	res, err := importer.Import(rest[0], cfg.Import)
	if err != nil {
		return err
	}

	fmt.Printf("Split %s at z=%d\n", rest[0], z)
	for _, m := range res.Models {
		lo, hi := m.Model.Bounds()
		fmt.Printf("  %-3d %-5s %6d voxels  z %d..%d  %d fragments\n",
			m.ID, m.Part, m.Model.Len(), lo.Z, hi.Z, len(m.Fragments))
	}
	return nil
}
