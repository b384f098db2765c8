package wloutput

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// displayObjectID is the well-known object 1 every Wayland connection
// starts with, per the protocol's bootstrap convention.
const displayObjectID ObjectID = 1

// wl_display opcodes.
const (
	displayRequestSync        Opcode = 0
	displayRequestGetRegistry Opcode = 1

	displayEventError    Opcode = 0
	displayEventDeleteID Opcode = 1
)

// wl_callback opcodes.
const callbackEventDone Opcode = 0

// wl_registry opcodes.
const (
	registryRequestBind Opcode = 0

	registryEventGlobal       Opcode = 0
	registryEventGlobalRemove Opcode = 1
)

// wl_output opcodes.
const (
	outputRequestRelease Opcode = 0

	outputEventGeometry Opcode = 0
	outputEventMode     Opcode = 1
	outputEventDone     Opcode = 2
	outputEventName     Opcode = 4
)

const outputInterfaceName = "wl_output"

// connection is one accepted client's object table and write path. Every
// accepted connection runs its own goroutine reading requests; writes are
// serialized under mu since event delivery (e.g. an extent-change
// broadcast) can race a request reply.
type connection struct {
	server *Server
	nc     net.Conn
	log    *slog.Logger

	mu sync.Mutex
	w  *bufio.Writer

	registryID ObjectID
	hasRegistry bool

	outputs map[ObjectID]*Output
}

func newConnection(server *Server, nc net.Conn) *connection {
	return &connection{
		server:  server,
		nc:      nc,
		log:     server.log,
		w:       bufio.NewWriter(nc),
		outputs: make(map[ObjectID]*Output),
	}
}

// serve reads requests until the client disconnects or sends something the
// server cannot parse, then unbinds every output this connection still
// holds.
func (c *connection) serve() {
	defer c.teardown()
	r := bufio.NewReader(c.nc)
	for {
		msg, err := ReadMessage(r)
		if err != nil {
			return
		}
		if err := c.dispatch(msg); err != nil {
			c.log.Debug("client protocol error", slog.String("err", err.Error()))
			_ = c.sendError(msg.ObjectID, 0, err.Error())
			return
		}
	}
}

func (c *connection) teardown() {
	_ = c.nc.Close()
	for _, out := range c.outputs {
		out.unbind(c)
	}
}

func (c *connection) dispatch(msg *Message) error {
	switch msg.ObjectID {
	case displayObjectID:
		return c.dispatchDisplay(msg)
	default:
		if c.hasRegistry && msg.ObjectID == c.registryID {
			return c.dispatchRegistry(msg)
		}
		if out, ok := c.outputs[msg.ObjectID]; ok {
			return c.dispatchOutput(out, msg)
		}
		return fmt.Errorf("unknown object %d", msg.ObjectID)
	}
}

func (c *connection) dispatchDisplay(msg *Message) error {
	dec := NewDecoder(msg.Args)
	switch msg.Opcode {
	case displayRequestSync:
		callback, err := dec.NewID()
		if err != nil {
			return err
		}
		return c.sendCallbackDone(callback)
	case displayRequestGetRegistry:
		registry, err := dec.NewID()
		if err != nil {
			return err
		}
		c.registryID = registry
		c.hasRegistry = true
		c.server.registerConnection(c)
		return c.server.announceAllGlobals(c)
	default:
		return fmt.Errorf("wl_display: unknown request %d", msg.Opcode)
	}
}

func (c *connection) dispatchRegistry(msg *Message) error {
	dec := NewDecoder(msg.Args)
	switch msg.Opcode {
	case registryRequestBind:
		name, err := dec.Uint32()
		if err != nil {
			return err
		}
		if _, err := dec.String(); err != nil { // interface name, unused: only one interface is ever offered
			return err
		}
		if _, err := dec.Uint32(); err != nil { // requested version, unused: always bound at version 4
			return err
		}
		id, err := dec.NewID()
		if err != nil {
			return err
		}
		out, ok := c.server.globalByName(name)
		if !ok {
			return fmt.Errorf("bind: unknown global name %d", name)
		}
		c.outputs[id] = out
		out.bind(c, id)
		return nil
	default:
		return fmt.Errorf("wl_registry: unknown request %d", msg.Opcode)
	}
}

func (c *connection) dispatchOutput(out *Output, msg *Message) error {
	switch msg.Opcode {
	case outputRequestRelease:
		for id, o := range c.outputs {
			if o == out {
				delete(c.outputs, id)
				out.unbind(c)
				return c.sendDeleteID(id)
			}
		}
		return nil
	default:
		return fmt.Errorf("wl_output: unknown request %d", msg.Opcode)
	}
}

func (c *connection) sendMessage(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(EncodeMessage(msg)); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *connection) sendCallbackDone(callback ObjectID) error {
	b := NewMessageBuilder()
	b.PutUint32(0)
	return c.sendMessage(b.BuildMessage(callback, callbackEventDone))
}

func (c *connection) sendDeleteID(id ObjectID) error {
	b := NewMessageBuilder()
	b.PutUint32(uint32(id))
	return c.sendMessage(b.BuildMessage(displayObjectID, displayEventDeleteID))
}

func (c *connection) sendError(object ObjectID, code uint32, message string) error {
	b := NewMessageBuilder()
	b.PutObject(object)
	b.PutUint32(code)
	b.PutString(message)
	return c.sendMessage(b.BuildMessage(displayObjectID, displayEventError))
}

func (c *connection) sendGlobal(name uint32) error {
	b := NewMessageBuilder()
	b.PutUint32(name)
	b.PutString(outputInterfaceName)
	b.PutUint32(outputVersion)
	return c.sendMessage(b.BuildMessage(c.registryID, registryEventGlobal))
}
