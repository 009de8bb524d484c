// Package config handles import configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/voxport/internal/texture"
	"github.com/Faultbox/voxport/pkg/mesh"
)

// Profile selects the downstream target an import is tuned for.
type Profile string

// Target profiles.
const (
	ProfileBlender Profile = "blender"
	ProfileVRM     Profile = "vrm"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all voxport settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig controls how a .vox file is turned into meshes.
type ImportConfig struct {
	TargetProfile             Profile       `yaml:"target_profile"`
	JoinArmature              bool          `yaml:"join_armature"`
	ScaleArmature             bool          `yaml:"scale_armature"`
	ShadeSmooth               bool          `yaml:"shade_smooth"`
	ApplyMToonShader          bool          `yaml:"apply_mtoon_shader"`
	MToonShaderPath           string        `yaml:"mtoon_shader_path"` // Shader asset checked when ApplyMToonShader is set
	OverrideExistingMaterials bool          `yaml:"override_existing_materials"`
	ColorEncoding             mesh.Encoding `yaml:"color_encoding"`
	GammaCorrect              bool          `yaml:"gamma_correct"`
	GammaValue                float32       `yaml:"gamma_value"`
	CleanupMesh               bool          `yaml:"cleanup_mesh"`
	CreateLights              bool          `yaml:"create_lights"`
	CreateVolumes             bool          `yaml:"create_volumes"` // Accepted, no volume objects are produced
	OrganizeIntoGroups        bool          `yaml:"organize_into_groups"`
	VoxelWorldScale           float32       `yaml:"voxel_world_scale"`
	SplitHead                 bool          `yaml:"split_head"`
	SplitHeadAt               int           `yaml:"split_head_at"` // z threshold, voxels at or above form the head
}

// OutputConfig holds export destinations.
type OutputConfig struct {
	Dir         string `yaml:"dir"`          // Directory for generated files
	Atlas       bool   `yaml:"atlas"`        // Also write palette/material strips on export
	AtlasFormat string `yaml:"atlas_format"` // tga, bmp or png
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			TargetProfile:      ProfileBlender,
			JoinArmature:       true,
			ScaleArmature:      true,
			ShadeSmooth:        true,
			ApplyMToonShader:   true,
			ColorEncoding:      mesh.EncodingSeparateMaterials,
			GammaCorrect:       true,
			GammaValue:         2.2,
			CleanupMesh:        true,
			OrganizeIntoGroups: true,
			VoxelWorldScale:    0.025,
			SplitHeadAt:        50,
		},
		Output: OutputConfig{
			Dir:         ".",
			AtlasFormat: string(texture.FormatTGA),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Encoding returns the color encoding actually used. The target profile
// overrides ColorEncoding: Blender imports get separate materials, VRM
// imports get a texture atlas.
func (c ImportConfig) Encoding() mesh.Encoding {
	switch c.TargetProfile {
	case ProfileBlender:
		return mesh.EncodingSeparateMaterials
	case ProfileVRM:
		return mesh.EncodingTexture
	}
	return c.ColorEncoding
}

// Gamma returns the gamma applied to separate material colors, 1 when
// correction is off.
func (c ImportConfig) Gamma() float32 {
	if !c.GammaCorrect {
		return 1
	}
	return c.GammaValue
}

// Validate checks the import settings.
func (c ImportConfig) Validate() error {
	switch c.TargetProfile {
	case ProfileBlender, ProfileVRM, "":
	default:
		return fmt.Errorf("%w: unknown target profile %q", ErrInvalidConfig, c.TargetProfile)
	}
	if c.GammaCorrect && c.GammaValue <= 0 {
		return fmt.Errorf("%w: gamma value must be positive, got %g", ErrInvalidConfig, c.GammaValue)
	}
	if c.VoxelWorldScale <= 0 {
		return fmt.Errorf("%w: voxel world scale must be positive, got %g", ErrInvalidConfig, c.VoxelWorldScale)
	}
	if c.SplitHead && (c.SplitHeadAt < 0 || c.SplitHeadAt > 255) {
		return fmt.Errorf("%w: split height %d outside 0..255", ErrInvalidConfig, c.SplitHeadAt)
	}
	return nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Import.Validate(); err != nil {
		return err
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: empty output directory", ErrInvalidConfig)
	}
	if _, err := texture.ParseFormat(c.Output.AtlasFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseProfile parses a profile name, case-insensitively.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProfileBlender, ProfileVRM:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown target profile %q", ErrInvalidConfig, s)
}
