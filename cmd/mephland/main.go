// Command mephland runs the display-render core, the Wayland wl_output
// server, and the controller that ties them together. One invocation, no
// arguments; configuration comes entirely from the environment (see
// internal/config).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Emimendoza/mephland/internal/config"
	"github.com/Emimendoza/mephland/internal/controller"
	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/internal/rendertrigger"
	"github.com/Emimendoza/mephland/internal/shaders"
	"github.com/Emimendoza/mephland/internal/surface/drm"
	"github.com/Emimendoza/mephland/internal/surface/sdlsurface"
	"github.com/Emimendoza/mephland/internal/wloutput"
	"github.com/Emimendoza/mephland/vk"
)

// maxTimeBetweenFrames is the controller's render-deadline interval; §5
// notes 500ms as the general default with the controller itself setting
// 50ms, so this is what every display's periodic wake-up uses.
const maxTimeBetweenFrames = 50 * time.Millisecond

const validationLayerName = "VK_LAYER_KHRONOS_validation"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "mephland: configuration error:", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	nodes, drmErr := openDRMNodes(cfg, log)

	var (
		opts         gpu.SelectionOptions
		identity     gpu.IdentityFunc
		monitors     gpu.MonitorSource
		instanceExts []string
		sdlRequired  []string
		usingSDL     bool
	)

	if len(nodes) > 0 {
		opts.RequiredExtensions = []string{"VK_EXT_physical_device_drm"}
		opts.DeviceGood = drm.DeviceGoodAny(nodes)
		identity = drm.IdentityFor(nodes)
		instanceExts = append(instanceExts,
			"VK_KHR_display",
			"VK_EXT_acquire_drm_display",
			"VK_EXT_direct_mode_display",
			"VK_EXT_display_surface_counter",
		)
	} else {
		sdlErr := func() error {
			exts, err := sdlsurface.RequiredInstanceExtensions()
			if err != nil {
				return err
			}
			sdlRequired = exts
			return nil
		}()
		if sdlErr != nil {
			return fmt.Errorf("no DRM devices available (%v) and SDL backend failed to initialize: %w", drmErr, sdlErr)
		}
		usingSDL = true
		instanceExts = append(instanceExts, sdlRequired...)
	}

	var layers []string
	if cfg.ValidationLayers {
		layers = append(layers, validationLayerName)
	}

	handle, err := vk.CreateInstance(&vk.InstanceCreateInfo{
		ApplicationInfo: &vk.ApplicationInfo{
			ApplicationName:    "mephland",
			ApplicationVersion: vk.MakeApiVersion(0, 1, 0, 0),
			EngineName:         "mephland",
			EngineVersion:      vk.MakeApiVersion(0, 1, 0, 0),
			ApiVersion:         vk.ApiVersion_1_3,
		},
		EnabledLayerNames:     layers,
		EnabledExtensionNames: instanceExts,
	})
	if err != nil {
		return fmt.Errorf("create vulkan instance: %w", err)
	}
	defer handle.Destroy()

	if usingSDL {
		monitors = sdlsurface.NewMonitorSource(handle, int64(cfg.SDLMaxWindows), 1920, 1080, log)
	} else {
		monitors = drm.NewMonitorSource(handle, nodes, log)
	}

	instance := gpu.NewInstance(handle, opts, identity, monitors, shaders.Vertex(), shaders.Fragment(), log)
	defer func() {
		for _, n := range nodes {
			n.Close()
		}
	}()

	server := wloutput.NewServer(log)
	trigger := rendertrigger.New()
	ctrl := controller.New(instance, server, trigger, maxTimeBetweenFrames, log)

	return ctrl.Run()
}

// openDRMNodes discovers and opens every MLAND_DRM_DEVICES-selected card,
// skipping (logging, not failing on) any individual node that cannot be
// opened or mastered; only an empty result is treated as "DRM unavailable".
func openDRMNodes(cfg config.Config, log *slog.Logger) ([]*drm.Node, error) {
	paths, err := drm.ListCardPaths()
	if err != nil {
		return nil, fmt.Errorf("list drm cards: %w", err)
	}
	paths = drm.Filter(paths, cfg.DRMInclude, cfg.DRMExclude)

	var nodes []*drm.Node
	for _, path := range paths {
		node, err := drm.OpenMaster(path)
		if err != nil {
			log.Warn("skipping drm card", slog.String("path", path), slog.String("err", err.Error()))
			continue
		}
		nodes = append(nodes, node)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no usable drm card among %v", paths)
	}
	return nodes, nil
}
