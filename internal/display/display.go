// Package display implements the per-display render core: the pipeline
// builder, the render-loop worker goroutine, and the state machine that
// governs it.
package display

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/internal/rendertrigger"
	"github.com/Emimendoza/mephland/internal/surface"
	"github.com/Emimendoza/mephland/vk"
)

// OutputBinding is the subset of internal/wloutput.Output a Display depends
// on: it never imports the Wayland wire server directly.
type OutputBinding interface {
	UpdateExtent(vk.Extent2D)
	Close() error
}

// Identity is the static per-display description the instance enumerator
// supplies and the output binding announces to clients.
type Identity struct {
	Name               string
	Make               string
	Model              string
	PhysicalWidthMM    int32
	PhysicalHeightMM   int32
	RefreshMilliHertz  int32
	Preferred          bool
}

// Config is everything New needs to bring a display to life.
type Config struct {
	Device          *gpu.Device
	Surface         surface.Provider
	Identity        Identity
	Trigger         *rendertrigger.Trigger
	MaxTimeBetween  time.Duration
	Log             *slog.Logger
	Output          OutputBinding // may be nil until BindOutput is called
}

// Display owns one physical output's swapchain, pipeline, and worker
// goroutine. See internal/display's package doc and the state machine in
// state.go for the lifecycle.
type Display struct {
	log      *slog.Logger
	device   *gpu.Device
	surface  surface.Provider
	identity Identity
	trigger  *rendertrigger.Trigger

	maxTimeBetweenFrames time.Duration

	state *stateMachine
	done  chan struct{}

	graphicsPool vk.CommandPool
	transferPool vk.CommandPool

	b built
	p *syncPool

	renderFinishedFence vk.Fence

	extentMu sync.Mutex
	output   OutputBinding

	framesRendered atomic.Uint64
	lastWasDemand  bool
}

// defaultMaxTimeBetweenFrames is the per-display render deadline used when
// Config.MaxTimeBetween is zero or negative.
const defaultMaxTimeBetweenFrames = 500 * time.Millisecond

// New constructs a Display in StatePreInit and starts its worker goroutine.
// The caller observes readiness via IsGood.
func New(cfg Config) *Display {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	maxTime := cfg.MaxTimeBetween
	if maxTime <= 0 {
		maxTime = defaultMaxTimeBetweenFrames
	}

	d := &Display{
		log:                  log,
		device:               cfg.Device,
		surface:              cfg.Surface,
		identity:             cfg.Identity,
		trigger:              cfg.Trigger,
		maxTimeBetweenFrames: maxTime,
		state:                newStateMachine(),
		done:                 make(chan struct{}),
		output:               cfg.Output,
	}

	go d.workerMain()
	return d
}

// BindOutput attaches the protocol output binding once the controller has
// created it; the spec requires this to happen only between Idle and Stop.
func (d *Display) BindOutput(output OutputBinding) {
	d.extentMu.Lock()
	defer d.extentMu.Unlock()
	d.output = output
}

// Extent returns the current swapchain extent, safe to call from any
// goroutine (e.g. a wl_output bind handler).
func (d *Display) Extent() vk.Extent2D {
	d.extentMu.Lock()
	defer d.extentMu.Unlock()
	return d.b.extent
}

// Identity returns the static description supplied at construction.
func (d *Display) Identity() Identity {
	return d.identity
}

// FramesRendered returns the lifetime frame count, safe for concurrent reads.
func (d *Display) FramesRendered() uint64 {
	return d.framesRendered.Load()
}

// IsGood blocks until the state machine has left PreInit, then reports
// whether the display is in a healthy (non-terminal, non-error) state.
func (d *Display) IsGood() bool {
	return d.state.waitPastPreInit().Healthy()
}

// State returns the current state without blocking.
func (d *Display) State() State {
	return d.state.get()
}
