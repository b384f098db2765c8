// Package controller owns the Vulkan instance, the Wayland output server,
// and the live collection of displays, driving monitor discovery and clean
// shutdown.
package controller

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Emimendoza/mephland/internal/display"
	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/internal/rendertrigger"
)

// monitorRefreshInterval is how often Run re-polls for newly appeared
// devices/connectors while idling; not named in the wire protocol, purely
// an internal hotplug-detection cadence.
const monitorRefreshInterval = 100 * time.Millisecond

// OutputServer is the subset of internal/wloutput.Server the controller
// depends on, keeping this package free of wire-protocol framing details.
type OutputServer interface {
	Start() error
	Stop()
	Stopped() bool
	Join()
	// BindToWayland creates the per-display protocol binding, matching
	// §4.8's BindToWayland entry point.
	BindToWayland(identity display.Identity) (display.OutputBinding, error)
}

// Controller is the single long-lived object cmd/mephland/main.go drives.
type Controller struct {
	instance *gpu.Instance
	server   OutputServer
	trigger  *rendertrigger.Trigger

	maxTimeBetweenFrames time.Duration
	log                  *slog.Logger

	mu       sync.Mutex
	displays []*display.Display
}

// New constructs a Controller. maxTimeBetweenFrames is the per-display
// deadline the controller imposes on every display it creates; §5 notes the
// controller sets this to 50ms (tighter than a display's own 500ms default)
// so monitor refresh and animation cadence stay responsive.
func New(instance *gpu.Instance, server OutputServer, trigger *rendertrigger.Trigger, maxTimeBetweenFrames time.Duration, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		instance:             instance,
		server:               server,
		trigger:              trigger,
		maxTimeBetweenFrames: maxTimeBetweenFrames,
		log:                  log,
	}
}

// RefreshMonitors implements §4.7: drop displays that have gone unhealthy,
// then create and bind a Display for every monitor that is new since the
// last call.
func (c *Controller) RefreshMonitors() error {
	c.mu.Lock()
	kept := c.displays[:0:0]
	for _, d := range c.displays {
		if d.IsGood() {
			kept = append(kept, d)
		} else {
			c.log.Info("dropping unhealthy display", slog.String("display", d.Identity().Name), slog.String("state", d.State().String()))
			d.Stop()
		}
	}
	c.displays = kept
	c.mu.Unlock()

	devices, err := c.instance.RefreshDevices()
	if err != nil {
		return fmt.Errorf("refresh devices: %w", err)
	}

	for _, dev := range devices {
		monitors, err := dev.UpdateMonitors()
		if err != nil {
			c.log.Warn("update monitors failed", slog.String("device", dev.ID()), slog.String("err", err.Error()))
			continue
		}

		for _, m := range monitors {
			c.addDisplay(dev, m)
		}
	}

	return nil
}

func (c *Controller) addDisplay(dev *gpu.Device, m gpu.MonitorDescriptor) {
	identity := display.Identity{
		Name:              m.Name,
		Make:              m.Make,
		Model:             m.Model,
		PhysicalWidthMM:   m.PhysicalWidthMM,
		PhysicalHeightMM:  m.PhysicalHeightMM,
		RefreshMilliHertz: m.RefreshMilliHertz,
		Preferred:         m.Preferred,
	}

	d := display.New(display.Config{
		Device:         dev,
		Surface:        m.Surface,
		Identity:       identity,
		Trigger:        c.trigger,
		MaxTimeBetween: c.maxTimeBetweenFrames,
		Log:            c.log,
	})

	if !d.IsGood() {
		c.log.Warn("new display failed to initialize", slog.String("monitor", m.Name))
		d.Stop()
		return
	}

	output, err := c.server.BindToWayland(identity)
	if err != nil {
		c.log.Error("bind display to wayland output failed", slog.String("monitor", m.Name), slog.String("err", err.Error()))
		d.Stop()
		return
	}
	d.BindOutput(output)

	c.mu.Lock()
	c.displays = append(c.displays, d)
	c.mu.Unlock()

	c.log.Info("display bound", slog.String("monitor", m.Name), slog.String("device", dev.ID()))
}

// Run installs SIGINT/SIGTERM handlers that stop the Wayland server, starts
// the server, polls RefreshMonitors on monitorRefreshInterval until the
// server reports stopped, then joins the server and every remaining
// display before tearing down the instance.
func (c *Controller) Run() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		c.log.Info("signal received, stopping")
		c.server.Stop()
	}()

	if err := c.server.Start(); err != nil {
		return fmt.Errorf("start wayland server: %w", err)
	}

	if err := c.RefreshMonitors(); err != nil {
		c.log.Error("initial monitor refresh failed", slog.String("err", err.Error()))
	}

	for !c.server.Stopped() {
		time.Sleep(monitorRefreshInterval)
		if err := c.RefreshMonitors(); err != nil {
			c.log.Error("monitor refresh failed", slog.String("err", err.Error()))
		}
	}

	c.server.Join()
	c.shutdownDisplays()
	c.instance.Destroy()

	return nil
}

func (c *Controller) shutdownDisplays() {
	c.mu.Lock()
	displays := c.displays
	c.displays = nil
	c.mu.Unlock()

	for _, d := range displays {
		d.Stop()
	}
}
