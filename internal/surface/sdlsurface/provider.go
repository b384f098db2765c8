// Package sdlsurface implements the windowed surface provider used when no
// DRM display is available or configured: one OS window per display, up to
// MLAND_SDL_MAX_WINDOWS, via github.com/NOT-REAL-GAMES/sdl3go.
package sdlsurface

import (
	"fmt"
	"sync"
	"sync/atomic"

	sdl "github.com/NOT-REAL-GAMES/sdl3go"

	"github.com/Emimendoza/mephland/vk"
)

var (
	initOnce   sync.Once
	initErr    error
	windowOpen atomic.Int64
)

func ensureInit() error {
	initOnce.Do(func() {
		initErr = sdl.Init(sdl.INIT_VIDEO)
	})
	return initErr
}

// Provider wraps one SDL window as a display's surface backend.
type Provider struct {
	instance   vk.Instance
	title      string
	width      int
	height     int
	maxWindows int64

	window  *sdl.Window
	surface vk.SurfaceKHR
}

func New(instance vk.Instance, title string, width, height int, maxWindows int64) *Provider {
	return &Provider{
		instance:   instance,
		title:      title,
		width:      width,
		height:     height,
		maxWindows: maxWindows,
	}
}

// RequiredInstanceExtensions returns the instance extensions SDL needs
// enabled before CreateInstance is called; callers fetch this once, prior
// to any Provider existing.
func RequiredInstanceExtensions() ([]string, error) {
	if err := ensureInit(); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	return sdl.VulkanGetInstanceExtensions()
}

func (p *Provider) Surface() vk.SurfaceKHR { return p.surface }

// CreateSurface opens a window (subject to MLAND_SDL_MAX_WINDOWS) and wraps
// its Vulkan surface.
func (p *Provider) CreateSurface() error {
	if err := ensureInit(); err != nil {
		return fmt.Errorf("sdl init: %w", err)
	}

	for {
		current := windowOpen.Load()
		if current >= p.maxWindows {
			return fmt.Errorf("MLAND_SDL_MAX_WINDOWS (%d) reached", p.maxWindows)
		}
		if windowOpen.CompareAndSwap(current, current+1) {
			break
		}
	}

	window, err := sdl.CreateWindow(p.title, p.width, p.height, sdl.WINDOW_VULKAN)
	if err != nil {
		windowOpen.Add(-1)
		return fmt.Errorf("create window: %w", err)
	}

	handle, err := window.VulkanCreateSurface(p.instance.Handle())
	if err != nil {
		window.Destroy()
		windowOpen.Add(-1)
		return fmt.Errorf("create vulkan surface: %w", err)
	}

	p.window = window
	p.surface = vk.NewSurfaceKHR(handle)
	return nil
}

// DeleteSurface is idempotent.
func (p *Provider) DeleteSurface() error {
	if p.window == nil {
		return nil
	}
	p.instance.DestroySurfaceKHR(p.surface)
	p.window.Destroy()
	p.window = nil
	p.surface = vk.SurfaceKHR{}
	windowOpen.Add(-1)
	return nil
}
