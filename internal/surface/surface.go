// Package surface defines the contract a display's surface backend must
// satisfy: produce a presentable vk.SurfaceKHR, and release it. The two
// concrete backends (drm, sdlsurface) live in subpackages so the render
// core never imports SDL or DRM ioctl machinery directly.
package surface

import "github.com/Emimendoza/mephland/vk"

// Provider is the only contract the display-render core depends on.
// CreateSurface must populate the surface returned by Surface, or return a
// fatal error. DeleteSurface releases it and may be called multiple times.
type Provider interface {
	CreateSurface() error
	Surface() vk.SurfaceKHR
	DeleteSurface() error
}
