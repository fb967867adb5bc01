package config

import (
	"bytes"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/vkngwrapper/renderer/memutils"
	"github.com/vkngwrapper/renderer/surface"
)

type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type Renderer struct {
	// FramesInFlight is both the number of frame slots and the minimum swapchain image count
	FramesInFlight int `toml:"frames_in_flight"`
	// Samples is the requested MSAA sample count; the device may lower it
	Samples int `toml:"samples"`
	// PresentMode is one of immediate, mailbox or fifo
	PresentMode string `toml:"present_mode"`
	Validation  bool   `toml:"validation"`
}

type Assets struct {
	Model          string `toml:"model"`
	Materials      string `toml:"materials"`
	Texture        string `toml:"texture"`
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`
}

type Logging struct {
	Level string `toml:"level"`
	// Format is text or json
	Format string `toml:"format"`
}

type Camera struct {
	Eye    [3]float32 `toml:"eye"`
	Target [3]float32 `toml:"target"`
	Up     [3]float32 `toml:"up"`
	// FovY is in radians
	FovY float64 `toml:"fov_y"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
	// Spin is in radians per second
	Spin float64 `toml:"spin"`
}

// Config is the viewer's full configuration
type Config struct {
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Logging  Logging  `toml:"logging"`
	Camera   Camera   `toml:"camera"`
}

func Default() Config {
	return Config{
		Window: Window{
			Title:  "renderer",
			Width:  800,
			Height: 600,
		},
		Renderer: Renderer{
			FramesInFlight: 2,
			Samples:        8,
			PresentMode:    "immediate",
			Validation:     true,
		},
		Assets: Assets{
			Model:          "models/model.obj",
			Texture:        "images/texture.jpg",
			VertexShader:   "shaders/spirv/vert.spv",
			FragmentShader: "shaders/spirv/frag.spv",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Camera: Camera{
			Eye:    [3]float32{0, 1.5, -1.5},
			Target: [3]float32{0, 0, 0},
			Up:     [3]float32{0, 1, 0},
			FovY:   math.Pi / 2.5,
			Near:   0.1,
			Far:    100,
			Spin:   1,
		},
	}
}

// Decode overlays the TOML document in data onto the defaults. Unknown keys are rejected.
func Decode(data []byte) (Config, error) {
	cfg := Default()

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to decode configuration")
	}

	return cfg, cfg.Validate()
}

// Load reads path with Decode. An empty path yields the validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), errors.Wrapf(err, "failed to read configuration %s", path)
	}

	cfg, err := Decode(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "configuration %s", path)
	}

	return cfg, nil
}

// LogLevel parses Logging.Level
func (c Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, errors.Wrapf(err, "unknown log level %q", c.Logging.Level)
	}
	return level, nil
}

func (c Config) Validate() error {
	if c.Renderer.FramesInFlight < 1 {
		return errors.Newf("renderer.frames_in_flight must be at least 1, got %d", c.Renderer.FramesInFlight)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}

	err := memutils.CheckPow2(c.Renderer.Samples, "renderer.samples")
	if err != nil {
		return err
	}
	if c.Renderer.Samples > 64 {
		return errors.Newf("renderer.samples must be at most 64, got %d", c.Renderer.Samples)
	}

	_, err = surface.ParsePresentMode(c.Renderer.PresentMode)
	if err != nil {
		return err
	}

	_, err = c.LogLevel()
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return errors.Newf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Assets.Model == "" || c.Assets.Texture == "" || c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		return errors.New("assets.model, assets.texture, assets.vertex_shader and assets.fragment_shader are required")
	}

	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return errors.Newf("camera planes must satisfy 0 < near < far, got near %g and far %g", c.Camera.Near, c.Camera.Far)
	}

	return nil
}
