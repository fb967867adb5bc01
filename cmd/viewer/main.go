package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	vkngmath "github.com/vkngwrapper/math"
	"github.com/vkngwrapper/renderer/config"
	"github.com/vkngwrapper/renderer/device"
	"github.com/vkngwrapper/renderer/mesh"
	"github.com/vkngwrapper/renderer/pass"
	"github.com/vkngwrapper/renderer/renderer"
	"github.com/vkngwrapper/renderer/surface"
	"github.com/vkngwrapper/renderer/swapchain"
	"github.com/vkngwrapper/renderer/texture"
)

const statsInterval = 5 * time.Second

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.LogLevel()
	options := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}

func vec3(v [3]float32) vkngmath.Vec3[float32] {
	return vkngmath.Vec3[float32]{X: v[0], Y: v[1], Z: v[2]}
}

func cameraFromConfig(c config.Camera) renderer.Camera {
	return renderer.Camera{
		Eye:    vec3(c.Eye),
		Target: vec3(c.Target),
		Up:     vec3(c.Up),
		FovY:   c.FovY,
		Near:   c.Near,
		Far:    c.Far,
		Spin:   c.Spin,
	}
}

type assets struct {
	mesh           *mesh.Mesh
	texture        *texture.Image
	vertexShader   []uint32
	fragmentShader []uint32
}

func loadAssets(cfg config.Assets) (*assets, error) {
	var loaded assets
	var err error

	loaded.mesh, err = mesh.LoadOBJ(cfg.Model, cfg.Materials)
	if err != nil {
		return nil, err
	}

	loaded.texture, err = texture.Load(cfg.Texture)
	if err != nil {
		return nil, err
	}

	loaded.vertexShader, err = pass.LoadShader(cfg.VertexShader)
	if err != nil {
		return nil, err
	}

	loaded.fragmentShader, err = pass.LoadShader(cfg.FragmentShader)
	if err != nil {
		return nil, err
	}

	return &loaded, nil
}

func drawableExtent(window *sdl.Window) core1_0.Extent2D {
	if window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return core1_0.Extent2D{}
	}

	width, height := window.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(width), Height: int(height)}
}

func run(logger *slog.Logger, cfg config.Config) error {
	loaded, err := loadAssets(cfg.Assets)
	if err != nil {
		return err
	}
	logger.Info("loaded assets",
		slog.Int("Vertices", len(loaded.mesh.Vertices)),
		slog.Int("Indices", len(loaded.mesh.Indices)),
		slog.Int("TextureWidth", loaded.texture.Width),
		slog.Int("TextureHeight", loaded.texture.Height),
	)

	presentMode, err := surface.ParsePresentMode(cfg.Renderer.PresentMode)
	if err != nil {
		return err
	}

	err = sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return errors.Wrap(err, "failed to initialise SDL")
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(cfg.Window.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.Window.Width), int32(cfg.Window.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "failed to create window")
	}
	defer window.Destroy()

	globalDriver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "failed to load vulkan")
	}

	instance, err := device.NewInstance(logger, globalDriver, device.InstanceOptions{
		ApplicationName:  cfg.Window.Title,
		WindowExtensions: window.VulkanGetInstanceExtensions(),
		EnableValidation: cfg.Renderer.Validation,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	surfaceExtension := khr_surface.CreateExtensionDriverFromCoreDriver(instance.Driver())
	handle, err := vkng_sdl2.CreateSurface(instance.Handle(), surfaceExtension, window)
	if err != nil {
		return errors.Wrap(err, "failed to create surface")
	}

	ctx, err := instance.CreateContext(surfaceExtension, handle, device.ContextOptions{})
	if err != nil {
		surfaceExtension.DestroySurface(handle, nil)
		return err
	}
	defer ctx.Destroy()

	policy := surface.DefaultPolicy()
	policy.PresentMode = presentMode

	surf, err := surface.Open(logger, surfaceExtension, handle, ctx.PhysicalDevice(), policy)
	if err != nil {
		surfaceExtension.DestroySurface(handle, nil)
		return err
	}
	defer surf.Destroy()

	swapchainDriver := swapchain.NewDriver(khr_swapchain.CreateExtensionDriverFromCoreDriver(ctx.DeviceDriver()))

	r, err := renderer.New(logger, ctx, surf, swapchainDriver, drawableExtent(window), renderer.Options{
		FramesInFlight: cfg.Renderer.FramesInFlight,
		Samples:        core1_0.SampleCountFlags(cfg.Renderer.Samples),
		VertexShader:   loaded.vertexShader,
		FragmentShader: loaded.fragmentShader,
		Mesh:           loaded.mesh,
		Texture:        loaded.texture,
		Camera:         cameraFromConfig(cfg.Camera),
	})
	if err != nil {
		return err
	}

	err = mainLoop(logger, window, r)
	logger.Debug("allocator statistics", slog.String("Stats", r.AllocatorStats()))
	closeErr := r.Close()

	return errors.CombineErrors(err, closeErr)
}

func mainLoop(logger *slog.Logger, window *sdl.Window, r *renderer.Renderer) error {
	ignoredFirstResize := false
	lastStats := hrtime.Now()
	var busy time.Duration
	var frames int

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				return nil
			case *sdl.KeyboardEvent:
				if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
					return nil
				}
			case *sdl.WindowEvent:
				if e.Event != sdl.WINDOWEVENT_RESIZED {
					continue
				}

				// Some window systems announce the initial size as a resize
				if !ignoredFirstResize {
					ignoredFirstResize = true
					continue
				}

				extent := drawableExtent(window)
				err := r.OnResize(extent.Width, extent.Height)
				if err != nil {
					return err
				}
			}
		}

		start := hrtime.Now()
		rendered, err := r.RenderFrame(drawableExtent(window))
		if err != nil {
			return err
		}

		if rendered {
			busy += hrtime.Since(start)
			frames++
		} else {
			sdl.Delay(16)
		}

		if hrtime.Since(lastStats) >= statsInterval {
			stats := r.Engine().Stats()
			attrs := []any{
				slog.Int("Rendered", stats.Rendered),
				slog.Int("Skipped", stats.Skipped),
				slog.Int("Rebuilds", stats.Rebuilds),
			}
			if frames > 0 {
				attrs = append(attrs, slog.Duration("AverageFrame", busy/time.Duration(frames)))
			}
			logger.Info("frame statistics", attrs...)

			lastStats = hrtime.Now()
			busy = 0
			frames = 0
		}
	}
}

func main() {
	runtime.LockOSThread()

	configPath := flag.String("config", "", "path to a TOML configuration file layered over the defaults")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)

	err = run(logger, cfg)
	if err != nil {
		logger.Error("viewer failed", slog.String("Error", fmt.Sprintf("%+v", err)))
		os.Exit(1)
	}
}
