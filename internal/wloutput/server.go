package wloutput

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Emimendoza/mephland/internal/display"
)

// Server is the hand-rolled Wayland server exposing one wl_output global
// per display bound to it. It implements internal/controller.OutputServer.
type Server struct {
	log *slog.Logger

	listener   net.Listener
	socketName string

	globalsMu sync.Mutex
	nextName  uint32
	globals   map[uint32]*Output
	conns     []*connection

	wg      sync.WaitGroup
	stopped atomic.Bool
	done    chan struct{}
}

// NewServer constructs a Server that has not yet bound its socket.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:     log,
		globals: make(map[uint32]*Output),
		done:    make(chan struct{}),
	}
}

// Start binds the Unix-domain socket at the first free $XDG_RUNTIME_DIR/
// wayland-N path, matching wl_display_add_socket_auto's search order, sets
// WAYLAND_DISPLAY for any child process, and begins accepting connections.
func (s *Server) Start() error {
	ln, name, err := listenSocketAuto()
	if err != nil {
		return fmt.Errorf("bind wayland socket: %w", err)
	}
	s.listener = ln
	s.socketName = name
	if err := os.Setenv("WAYLAND_DISPLAY", name); err != nil {
		s.log.Warn("failed to set WAYLAND_DISPLAY", slog.String("err", err.Error()))
	}

	s.log.Info("wayland server listening", slog.String("socket", name))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func listenSocketAuto() (net.Listener, string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return nil, "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("wayland-%d", i)
		ln, err := net.Listen("unix", filepath.Join(dir, name))
		if err == nil {
			return ln, name, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free wayland-N socket in %s", dir)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return
		}
		conn := newConnection(s, nc)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			conn.serve()
		}()
	}
}

// Stop closes the listener, which unblocks acceptLoop; already-accepted
// connections are left to drain on their own and are waited on by Join.
func (s *Server) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		if s.listener != nil {
			_ = s.listener.Close()
		}
		close(s.done)
	}
}

// Stopped reports whether Stop has been called.
func (s *Server) Stopped() bool {
	return s.stopped.Load()
}

// Join waits for the accept loop and every connection goroutine to exit,
// then removes the socket file.
func (s *Server) Join() {
	s.wg.Wait()
	if s.socketName != "" {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			_ = os.Remove(filepath.Join(dir, s.socketName))
		}
	}
}

// BindToWayland implements §4.8: creates the Output global for identity,
// assigns it the next global name, and announces it to every registry a
// client has already requested.
func (s *Server) BindToWayland(identity display.Identity) (display.OutputBinding, error) {
	s.globalsMu.Lock()
	name := s.nextName
	s.nextName++
	out := newOutput(identity, name, s.log)
	s.globals[name] = out
	conns := append([]*connection(nil), s.conns...)
	s.globalsMu.Unlock()

	for _, c := range conns {
		if c.hasRegistry {
			if err := c.sendGlobal(name); err != nil {
				s.log.Debug("announce global failed", slog.String("err", err.Error()))
			}
		}
	}

	return out, nil
}

func (s *Server) registerConnection(c *connection) {
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	s.conns = append(s.conns, c)
}

func (s *Server) globalByName(name uint32) (*Output, bool) {
	s.globalsMu.Lock()
	defer s.globalsMu.Unlock()
	out, ok := s.globals[name]
	return out, ok
}

// announceAllGlobals sends a global event for every currently known output
// to a client that just requested the registry.
func (s *Server) announceAllGlobals(c *connection) error {
	s.globalsMu.Lock()
	names := make([]uint32, 0, len(s.globals))
	for name := range s.globals {
		names = append(names, name)
	}
	s.globalsMu.Unlock()

	for _, name := range names {
		if err := c.sendGlobal(name); err != nil {
			return err
		}
	}
	return nil
}
