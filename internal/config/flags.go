package config

import (
	"flag"

	"github.com/Faultbox/voxport/pkg/mesh"
)

// Flags holds command-line overrides registered on a FlagSet.
type Flags struct {
	fs *flag.FlagSet

	config   *string
	debug    *bool
	profile  *string
	encoding *string
	scale    *float64
	gamma    *float64
	lights   *bool
	noClean  *bool
	splitAt  *int
	outDir   *string
	atlasFmt *string
	logFile  *string
}

// RegisterFlags adds the shared import flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:       fs,
		config:   fs.String("config", "", "Path to config file"),
		debug:    fs.Bool("debug", false, "Enable debug logging"),
		profile:  fs.String("profile", "", "Target profile (blender, vrm)"),
		encoding: fs.String("encoding", "", "Color encoding (none, separate_materials, vertex_color, texture)"),
		scale:    fs.Float64("scale", 0, "Voxel size in world units"),
		gamma:    fs.Float64("gamma", 0, "Gamma value for material colors"),
		lights:   fs.Bool("lights", false, "Create point lights for emissive voxels"),
		noClean:  fs.Bool("no-cleanup", false, "Skip vertex welding"),
		splitAt:  fs.Int("split-head", -1, "Split models into body and head at this z"),
		outDir:   fs.String("out", "", "Output directory"),
		atlasFmt: fs.String("atlas-format", "", "Atlas image format (tga, bmp, png)"),
		logFile:  fs.String("log", "", "Log file path"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	return *f.config
}

// set reports whether the named flag was given on the command line.
func (f *Flags) set(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) error {
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.profile != "" {
		p, err := ParseProfile(*f.profile)
		if err != nil {
			return err
		}
		cfg.Import.TargetProfile = p
	}
	if *f.encoding != "" {
		enc, err := mesh.ParseEncoding(*f.encoding)
		if err != nil {
			return err
		}
		cfg.Import.ColorEncoding = enc
		// An explicit encoding only takes effect without a profile.
		if *f.profile == "" {
			cfg.Import.TargetProfile = ""
		}
	}
	if *f.scale > 0 {
		cfg.Import.VoxelWorldScale = float32(*f.scale)
	}
	if *f.gamma > 0 {
		cfg.Import.GammaCorrect = true
		cfg.Import.GammaValue = float32(*f.gamma)
	}
	if f.set("lights") {
		cfg.Import.CreateLights = *f.lights
	}
	if *f.noClean {
		cfg.Import.CleanupMesh = false
	}
	if *f.splitAt >= 0 {
		cfg.Import.SplitHead = true
		cfg.Import.SplitHeadAt = *f.splitAt
	}
	if *f.outDir != "" {
		cfg.Output.Dir = *f.outDir
	}
	if *f.atlasFmt != "" {
		cfg.Output.AtlasFormat = *f.atlasFmt
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	return nil
}
