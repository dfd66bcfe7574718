package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvPrefix is prepended to every environment override, e.g.
// PTRACK_DETECT_DIAMETER.
const EnvPrefix = "PTRACK_"

// Paths holds input and output locations shared by several stages.
type Paths struct {
	FramesDir string `toml:"frames_dir" env:"FRAMES_DIR"`
	OutputDir string `toml:"output_dir" env:"OUTPUT_DIR"`
	StorePath string `toml:"store_path" env:"STORE_PATH"`
}

// Extract configures the frame extractor.
type Extract struct {
	Decoder       string `toml:"decoder"        env:"DECODER"`
	FFmpegBinary  string `toml:"ffmpeg_binary"  env:"FFMPEG_BINARY"`
	FFprobeBinary string `toml:"ffprobe_binary" env:"FFPROBE_BINARY"`
	Grayscale     bool   `toml:"grayscale"      env:"GRAYSCALE"`
	Prefix        string `toml:"prefix"         env:"PREFIX"`
	Digits        int    `toml:"digits"         env:"DIGITS"`
	Ext           string `toml:"ext"            env:"EXT"`
}

// Detect configures single-frame particle localization.
type Detect struct {
	// Pattern selects frame files inside the frames directory.
	Pattern string `toml:"pattern" env:"PATTERN"`
	// Diameter is the expected particle footprint in pixels. Must be odd.
	Diameter int     `toml:"diameter" env:"DIAMETER"`
	MinMass  float64 `toml:"min_mass" env:"MIN_MASS"`
	// Invert treats particles as darker than the background.
	Invert     bool    `toml:"invert"     env:"INVERT"`
	NoiseSize  float64 `toml:"noise_size" env:"NOISE_SIZE"`
	Separation float64 `toml:"separation" env:"SEPARATION"`
	Threshold  float64 `toml:"threshold"  env:"THRESHOLD"`
}

// Link configures frame-to-frame assignment.
type Link struct {
	Method      string  `toml:"method"       env:"METHOD"`
	SearchRange float64 `toml:"search_range" env:"SEARCH_RANGE"`
	Memory      int     `toml:"memory"       env:"MEMORY"`
}

// Filter configures stub and attribute filtering.
type Filter struct {
	MinLength int `toml:"min_length" env:"MIN_LENGTH"`
	// SizeBound picks the upper size limit: "diameter", "minmass" or "fixed".
	SizeBound string  `toml:"size_bound" env:"SIZE_BOUND"`
	MaxSize   float64 `toml:"max_size"   env:"MAX_SIZE"`
	MaxEcc    float64 `toml:"max_ecc"    env:"MAX_ECC"`
	Order     string  `toml:"order"      env:"ORDER"`
}

// Render configures annotated frames and exported stacks.
type Render struct {
	FeatureColor string  `toml:"feature_color" env:"FEATURE_COLOR"`
	Radius       float64 `toml:"radius"        env:"RADIUS"`
	Scale        float64 `toml:"scale"         env:"SCALE"`
	LineWidth    int     `toml:"line_width"    env:"LINE_WIDTH"`
	Labels       bool    `toml:"labels"        env:"LABELS"`
}

// Explore configures the parameter explorer.
type Explore struct {
	FrameNumber int `toml:"frame_number" env:"FRAME_NUMBER"`
	Bins        int `toml:"bins"         env:"BINS"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"  env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Config encapsulates all configuration values for ptrack.
//
// Sections by stage:
//   - Paths: frame directory, output directory and store file
//   - Extract: video decoding and frame naming
//   - Detect: localization parameters (diameter, min-mass, polarity)
//   - Link: search range, memory and assignment method
//   - Filter: stub length and attribute bounds
//   - Render: overlay appearance
//   - Explore: diagnostic frame selection
//   - Logging: log level and format
type Config struct {
	Paths   Paths   `toml:"paths"   envPrefix:"PATHS_"`
	Extract Extract `toml:"extract" envPrefix:"EXTRACT_"`
	Detect  Detect  `toml:"detect"  envPrefix:"DETECT_"`
	Link    Link    `toml:"link"    envPrefix:"LINK_"`
	Filter  Filter  `toml:"filter"  envPrefix:"FILTER_"`
	Render  Render  `toml:"render"  envPrefix:"RENDER_"`
	Explore Explore `toml:"explore" envPrefix:"EXPLORE_"`
	Logging Logging `toml:"logging" envPrefix:"LOG_"`
}

// DefaultConfigPath returns the per-user configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ptrack/config.toml")
}

// Load locates and parses a configuration file, applies environment
// overrides and normalizes paths. It does not validate: the CLI applies
// flags first and then calls Validate.
//
// The returned string is the resolved file path and the bool reports whether
// the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := applyEnv(&cfg, nil); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnv overlays PTRACK_* variables on cfg. A nil environment reads the
// process environment.
func applyEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %s does not exist", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("ptrack.toml")
	if err != nil {
		return "", false, err
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// SampleConfig returns the commented sample written by `ptrack config init`.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample configuration to path, creating parent
// directories. An existing file is never overwritten.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file %s already exists", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML, used by `ptrack config show`.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	enc := toml.NewEncoder(&b)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
