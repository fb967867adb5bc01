package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/renderer/memutils"
	"github.com/vkngwrapper/renderer/surface"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 2, cfg.Renderer.FramesInFlight)
	require.Equal(t, 800, cfg.Window.Width)
	require.Equal(t, 600, cfg.Window.Height)
	require.Equal(t, "immediate", cfg.Renderer.PresentMode)
	require.Equal(t, "shaders/spirv/vert.spv", cfg.Assets.VertexShader)
	require.Equal(t, [3]float32{0, 1.5, -1.5}, cfg.Camera.Eye)
}

func TestDecode(t *testing.T) {
	testCases := map[string]struct {
		document string
		check    func(t *testing.T, cfg Config)
		fails    error
		invalid  bool
	}{
		"Empty": {
			document: "",
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, Default(), cfg)
			},
		},
		"Overlay": {
			document: `
[window]
width = 1280

[renderer]
frames_in_flight = 3
present_mode = "FIFO"

[camera]
eye = [1.0, 2.0, 3.0]
`,
			check: func(t *testing.T, cfg Config) {
				require.Equal(t, 1280, cfg.Window.Width)
				require.Equal(t, 600, cfg.Window.Height)
				require.Equal(t, 3, cfg.Renderer.FramesInFlight)
				require.Equal(t, "FIFO", cfg.Renderer.PresentMode)
				require.Equal(t, 8, cfg.Renderer.Samples)
				require.Equal(t, [3]float32{1, 2, 3}, cfg.Camera.Eye)
			},
		},
		"ZeroFrames": {
			document: "[renderer]\nframes_in_flight = 0\n",
			invalid:  true,
		},
		"NegativeWindow": {
			document: "[window]\nheight = -1\n",
			invalid:  true,
		},
		"SamplesNotPow2": {
			document: "[renderer]\nsamples = 6\n",
			fails:    memutils.ErrPowerOfTwo,
		},
		"TooManySamples": {
			document: "[renderer]\nsamples = 128\n",
			invalid:  true,
		},
		"UnknownPresentMode": {
			document: "[renderer]\npresent_mode = \"vsync\"\n",
			fails:    surface.ErrUnknownPresentMode,
		},
		"UnknownLogLevel": {
			document: "[logging]\nlevel = \"loud\"\n",
			invalid:  true,
		},
		"UnknownLogFormat": {
			document: "[logging]\nformat = \"xml\"\n",
			invalid:  true,
		},
		"BadPlanes": {
			document: "[camera]\nnear = 10.0\nfar = 1.0\n",
			invalid:  true,
		},
		"UnknownKey": {
			document: "[window]\ncolour = \"blue\"\n",
			invalid:  true,
		},
		"Malformed": {
			document: "[window\n",
			invalid:  true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Decode([]byte(tc.document))
			if tc.fails != nil {
				require.Error(t, err)
				require.True(t, errors.Is(err, tc.fails))
				return
			}
			if tc.invalid {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\ntitle = \"spinning\"\n"), 0o644))

	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, "spinning", cfg.Window.Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
