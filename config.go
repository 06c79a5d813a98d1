package vkrender

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	vk "github.com/vulkan-go/vulkan"
)

// Config is the renderer and viewer configuration
type Config struct {
	Render  RenderConfig  `mapstructure:"render"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Window  WindowConfig  `mapstructure:"window"`
	Assets  AssetsConfig  `mapstructure:"assets"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type RenderConfig struct {
	FramesInFlight int     `mapstructure:"frames_in_flight"`
	PresentMode    string  `mapstructure:"present_mode"`
	MSAASamples    int     `mapstructure:"msaa_samples"`
	MaxAnisotropy  float32 `mapstructure:"max_anisotropy"`
	MinImageCount  int     `mapstructure:"min_image_count"`
}

type MemoryConfig struct {
	BlockSize          uint64 `mapstructure:"block_size"`
	DedicatedThreshold uint64 `mapstructure:"dedicated_threshold"`
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

type AssetsConfig struct {
	Texture        string `mapstructure:"texture"`
	VertexShader   string `mapstructure:"vertex_shader"`
	FragmentShader string `mapstructure:"fragment_shader"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			FramesInFlight: 2,
			PresentMode:    "mailbox",
			MSAASamples:    4,
			MaxAnisotropy:  16,
			MinImageCount:  DefaultMinImageCount,
		},
		Memory: MemoryConfig{
			BlockSize:          DefaultMemoryBlockSize,
			DedicatedThreshold: DefaultDedicatedThreshold,
		},
		Window: WindowConfig{
			Width:  800,
			Height: 600,
			Title:  "vkrender",
		},
		Assets: AssetsConfig{
			Texture:        "textures/texture.png",
			VertexShader:   "shaders/vert.spv",
			FragmentShader: "shaders/frag.spv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// NewViper returns a viper instance holding the defaults, config file search
// path and environment bindings. cfgFile may be empty.
func NewViper(cfgFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("vkrender")
	}

	v.SetEnvPrefix("VKRENDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from file, environment, and defaults
func LoadConfig(cfgFile string) (*Config, error) {
	return ReadConfig(NewViper(cfgFile))
}

// ReadConfig reads the config file known to v, if any, and unmarshals and validates the result
func ReadConfig(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

var presentModes = map[string]vk.PresentMode{
	"mailbox":   vk.PresentModeMailbox,
	"fifo":      vk.PresentModeFifo,
	"immediate": vk.PresentModeImmediate,
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Render.FramesInFlight < 1 || c.Render.FramesInFlight > 8 {
		return errors.New("render.frames_in_flight must be between 1 and 8")
	}
	if _, ok := presentModes[c.Render.PresentMode]; !ok {
		return errors.New("render.present_mode must be one of: mailbox, fifo, immediate")
	}
	switch c.Render.MSAASamples {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return errors.New("render.msaa_samples must be a power of two between 1 and 64")
	}
	if c.Render.MaxAnisotropy < 0 {
		return errors.New("render.max_anisotropy must not be negative")
	}
	if c.Render.MinImageCount < DefaultMinImageCount {
		return errors.Errorf("render.min_image_count must be at least %d", DefaultMinImageCount)
	}
	if c.Memory.BlockSize == 0 {
		return errors.New("memory.block_size must be positive")
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.New("window.width and window.height must be positive")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}

// RendererOptions projects the render and memory sections onto RendererOptions
func (c *Config) RendererOptions() RendererOptions {
	return RendererOptions{
		FramesInFlight:     c.Render.FramesInFlight,
		PresentMode:        Some(presentModes[c.Render.PresentMode]),
		MSAASamples:        vk.SampleCountFlagBits(c.Render.MSAASamples),
		MaxAnisotropy:      c.Render.MaxAnisotropy,
		MinImageCount:      uint32(c.Render.MinImageCount),
		MemoryBlockSize:    c.Memory.BlockSize,
		DedicatedThreshold: c.Memory.DedicatedThreshold,
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("render.frames_in_flight", cfg.Render.FramesInFlight)
	v.SetDefault("render.present_mode", cfg.Render.PresentMode)
	v.SetDefault("render.msaa_samples", cfg.Render.MSAASamples)
	v.SetDefault("render.max_anisotropy", cfg.Render.MaxAnisotropy)
	v.SetDefault("render.min_image_count", cfg.Render.MinImageCount)

	v.SetDefault("memory.block_size", cfg.Memory.BlockSize)
	v.SetDefault("memory.dedicated_threshold", cfg.Memory.DedicatedThreshold)

	v.SetDefault("window.width", cfg.Window.Width)
	v.SetDefault("window.height", cfg.Window.Height)
	v.SetDefault("window.title", cfg.Window.Title)

	v.SetDefault("assets.texture", cfg.Assets.Texture)
	v.SetDefault("assets.vertex_shader", cfg.Assets.VertexShader)
	v.SetDefault("assets.fragment_shader", cfg.Assets.FragmentShader)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
}
