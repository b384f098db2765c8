package wloutput

import (
	"log/slog"
	"sync"

	"github.com/Emimendoza/mephland/internal/display"
	"github.com/Emimendoza/mephland/vk"
)

// outputVersion is the wl_output protocol version this server implements,
// per §6: geometry/mode/name/done plus the release request.
const outputVersion = 4

const (
	subpixelUnknown = 0
	transformNormal = 0

	modeCurrent   = 0x1
	modePreferred = 0x2
)

// Output is the per-display wl_output global, satisfying
// internal/display.OutputBinding. One exists per display bound via
// Server.BindToWayland.
type Output struct {
	log      *slog.Logger
	identity display.Identity
	name     uint32

	mu      sync.Mutex
	extent  vk.Extent2D
	closed  bool
	clients map[*connection]ObjectID
}

func newOutput(identity display.Identity, name uint32, log *slog.Logger) *Output {
	return &Output{
		log:      log,
		identity: identity,
		name:     name,
		clients:  make(map[*connection]ObjectID),
	}
}

// bind registers a client's freshly-created wl_output object and sends the
// initial geometry/mode/name/done burst, per §4.8.
func (o *Output) bind(c *connection, id ObjectID) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.clients[c] = id
	identity := o.identity
	extent := o.extent
	o.mu.Unlock()

	flags := uint32(modeCurrent)
	if identity.Preferred {
		flags |= modePreferred
	}

	if err := c.sendGeometry(id, identity); err != nil {
		o.log.Debug("send geometry failed", slog.String("err", err.Error()))
		return
	}
	if err := c.sendMode(id, identity, extent, flags); err != nil {
		o.log.Debug("send mode failed", slog.String("err", err.Error()))
		return
	}
	if err := c.sendName(id, identity); err != nil {
		o.log.Debug("send name failed", slog.String("err", err.Error()))
		return
	}
	if err := c.sendOutputDone(id); err != nil {
		o.log.Debug("send done failed", slog.String("err", err.Error()))
	}
}

func (o *Output) unbind(c *connection) {
	o.mu.Lock()
	delete(o.clients, c)
	o.mu.Unlock()
}

// UpdateExtent implements display.OutputBinding: on a swapchain extent
// change, re-sends geometry+done (no second mode event) to every currently
// bound client.
func (o *Output) UpdateExtent(extent vk.Extent2D) {
	o.mu.Lock()
	o.extent = extent
	identity := o.identity
	clients := make(map[*connection]ObjectID, len(o.clients))
	for c, id := range o.clients {
		clients[c] = id
	}
	o.mu.Unlock()

	for c, id := range clients {
		if err := c.sendGeometry(id, identity); err != nil {
			o.log.Debug("send geometry failed", slog.String("err", err.Error()))
			continue
		}
		if err := c.sendOutputDone(id); err != nil {
			o.log.Debug("send done failed", slog.String("err", err.Error()))
		}
	}
}

// Close implements display.OutputBinding. It marks the output unavailable
// to any future bind and drops its bound-client set; already-bound clients
// are left alone since the display tearing down does not imply the
// protocol connection itself is gone.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.clients = nil
	return nil
}

func (c *connection) sendGeometry(id ObjectID, identity display.Identity) error {
	b := NewMessageBuilder()
	b.PutInt32(0)
	b.PutInt32(0)
	b.PutInt32(identity.PhysicalWidthMM)
	b.PutInt32(identity.PhysicalHeightMM)
	b.PutInt32(subpixelUnknown)
	b.PutString(identity.Make)
	b.PutString(identity.Model)
	b.PutInt32(transformNormal)
	return c.sendMessage(b.BuildMessage(id, outputEventGeometry))
}

func (c *connection) sendMode(id ObjectID, identity display.Identity, extent vk.Extent2D, flags uint32) error {
	b := NewMessageBuilder()
	b.PutUint32(flags)
	b.PutInt32(int32(extent.Width))
	b.PutInt32(int32(extent.Height))
	b.PutInt32(identity.RefreshMilliHertz)
	return c.sendMessage(b.BuildMessage(id, outputEventMode))
}

func (c *connection) sendName(id ObjectID, identity display.Identity) error {
	b := NewMessageBuilder()
	b.PutString(identity.Name)
	return c.sendMessage(b.BuildMessage(id, outputEventName))
}

func (c *connection) sendOutputDone(id ObjectID) error {
	b := NewMessageBuilder()
	return c.sendMessage(b.BuildMessage(id, outputEventDone))
}
