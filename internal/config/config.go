package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	OutputDir   string `yaml:"output_dir"`
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	Selection SelectionConfig `yaml:"selection"`
	Annotate  AnnotateConfig  `yaml:"annotate"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Render    RenderConfig    `yaml:"render"`
	Source    SourceConfig    `yaml:"source"`
	Server    ServerConfig    `yaml:"server"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

type SelectionConfig struct {
	TargetDuration float64 `yaml:"target_duration"`
	Captions       bool    `yaml:"captions"`
}

// Annotation providers
const (
	ProviderGoogle = "google"
	ProviderLocal  = "local"
	ProviderNone   = "none"
)

type AnnotateConfig struct {
	Provider        string        `yaml:"provider"`
	Timeout         time.Duration `yaml:"timeout"`
	CredentialsFile string        `yaml:"credentials_file" env:"GOOGLE_APPLICATION_CREDENTIALS"`
	LanguageCode    string        `yaml:"language_code"`
	DumpPath        string        `yaml:"dump_path"`
	SceneThreshold  float64       `yaml:"scene_threshold"`

	// CLIP labeling of local scenes; disabled when ModelPath is empty
	ModelPath     string  `yaml:"model_path" env:"CLIPKART_MODEL_PATH"`
	PromptsPath   string  `yaml:"prompts_path"`
	LibraryPath   string  `yaml:"onnxruntime_path" env:"ONNXRUNTIME_LIB"`
	TopK          int     `yaml:"top_k"`
	MinConfidence float64 `yaml:"min_confidence"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
}

type RenderConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           float64 `yaml:"fps"`
	Format        string  `yaml:"format"`
	FontName      string  `yaml:"font_name"`
	FontSize      int     `yaml:"font_size"`
	FontColor     string  `yaml:"font_color"`
	BoxColor      string  `yaml:"box_color"`
	BoxOpacity    float64 `yaml:"box_opacity"`
	CaptionMargin int     `yaml:"caption_margin"`
}

type SourceConfig struct {
	YTDLPPath string        `yaml:"ytdlp_path"`
	Timeout   time.Duration `yaml:"timeout"`

	// Lets the server fetch direct video URLs on any host, not just YouTube
	AllowDirectHTTP bool `yaml:"allow_direct_http"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"CLIPKART_ADDR"`
}

// Job stores
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type JobsConfig struct {
	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Load reads configuration from file or returns defaults. A .env file in
// the working directory is loaded first and may override file settings.
func Load(path string) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no run could succeed with
func (c *Config) Validate() error {
	if c.Selection.TargetDuration <= 0 {
		return fmt.Errorf("selection.target_duration must be positive, got %v", c.Selection.TargetDuration)
	}
	switch c.Annotate.Provider {
	case ProviderGoogle, ProviderLocal, ProviderNone:
	default:
		return fmt.Errorf("unknown annotate.provider %q", c.Annotate.Provider)
	}
	if c.Annotate.Timeout <= 0 {
		return fmt.Errorf("annotate.timeout must be positive")
	}
	switch c.Render.Format {
	case "mp4", "mkv":
	default:
		return fmt.Errorf("unknown render.format %q", c.Render.Format)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	switch c.Jobs.Store {
	case StoreMemory:
	case StoreSQLite:
		if c.Jobs.SQLitePath == "" {
			return fmt.Errorf("jobs.sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown jobs.store %q", c.Jobs.Store)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		c.Annotate.CredentialsFile = v
	}
	if v := os.Getenv("CLIPKART_MODEL_PATH"); v != "" {
		c.Annotate.ModelPath = v
	}
	if v := os.Getenv("ONNXRUNTIME_LIB"); v != "" {
		c.Annotate.LibraryPath = v
	}
	if v := os.Getenv("CLIPKART_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CLIPKART_PROVIDER"); v != "" {
		c.Annotate.Provider = v
	}
	if v := os.Getenv("CLIPKART_TARGET"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Selection.TargetDuration = f
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     "./work",
		OutputDir:   "./output",
		TempDir:     "./temp",
		Concurrency: 4,
		Selection: SelectionConfig{
			TargetDuration: 60,
			Captions:       true,
		},
		Annotate: AnnotateConfig{
			Provider:       ProviderGoogle,
			Timeout:        5 * time.Minute,
			LanguageCode:   "en-US",
			SceneThreshold: 0.3,
			PromptsPath:    "./models/clip-prompts.json",
			TopK:           3,
			MinConfidence:  0.1,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Render: RenderConfig{
			Width:         1080,
			Height:        1920,
			FPS:           24,
			Format:        "mp4",
			FontName:      "Arial",
			FontSize:      32,
			FontColor:     "white",
			BoxColor:      "black",
			BoxOpacity:    0.6,
			CaptionMargin: 96,
		},
		Source: SourceConfig{
			YTDLPPath: "yt-dlp",
			Timeout:   30 * time.Minute,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:5000",
		},
		Jobs: JobsConfig{
			Store:      StoreMemory,
			SQLitePath: filepath.Join(".", "work", "jobs.db"),
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		"./config.yml",
		filepath.Join(os.Getenv("HOME"), ".clipkart", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
