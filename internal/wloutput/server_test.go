package wloutput

import (
	"bufio"
	"net"
	"testing"

	"github.com/Emimendoza/mephland/internal/display"
	"github.com/Emimendoza/mephland/vk"
)

// clientWrite encodes and writes one request to nc.
func clientWrite(t *testing.T, nc net.Conn, msg *Message) {
	t.Helper()
	if _, err := nc.Write(EncodeMessage(msg)); err != nil {
		t.Fatalf("client write: %v", err)
	}
}

// clientRead reads and decodes one event from r.
func clientRead(t *testing.T, r *bufio.Reader) *Message {
	t.Helper()
	msg, err := ReadMessage(r)
	if err != nil {
		t.Fatalf("client read: %v", err)
	}
	return msg
}

func TestOutputBindSendsGeometryModeNameDone(t *testing.T) {
	server := NewServer(nil)
	identity := display.Identity{
		Name:              "DP-1",
		Make:              "Acme",
		Model:             "Display9000",
		PhysicalWidthMM:   600,
		PhysicalHeightMM:  340,
		RefreshMilliHertz: 60000,
		Preferred:         true,
	}
	binding, err := server.BindToWayland(identity)
	if err != nil {
		t.Fatalf("BindToWayland: %v", err)
	}
	out := binding.(*Output)
	out.UpdateExtent(vk.Extent2D{Width: 1920, Height: 1080})

	clientEnd, serverEnd := net.Pipe()
	defer clientEnd.Close()
	conn := newConnection(server, serverEnd)
	go conn.serve()

	getRegistry := NewMessageBuilder()
	getRegistry.PutNewID(ObjectID(2))
	clientWrite(t, clientEnd, getRegistry.BuildMessage(displayObjectID, displayRequestGetRegistry))

	r := bufio.NewReader(clientEnd)
	global := clientRead(t, r)
	if global.Opcode != registryEventGlobal {
		t.Fatalf("expected a global event, got opcode %d", global.Opcode)
	}
	dec := NewDecoder(global.Args)
	name, err := dec.Uint32()
	if err != nil {
		t.Fatalf("decode global name: %v", err)
	}
	iface, err := dec.String()
	if err != nil || iface != outputInterfaceName {
		t.Fatalf("decode global interface: got %q, err %v", iface, err)
	}

	b := NewMessageBuilder()
	b.PutUint32(name)
	b.PutString(outputInterfaceName)
	b.PutUint32(outputVersion)
	b.PutNewID(ObjectID(3))
	clientWrite(t, clientEnd, b.BuildMessage(ObjectID(2), registryRequestBind))

	geometry := clientRead(t, r)
	if geometry.Opcode != outputEventGeometry || geometry.ObjectID != ObjectID(3) {
		t.Fatalf("expected geometry on object 3, got object=%d opcode=%d", geometry.ObjectID, geometry.Opcode)
	}

	mode := clientRead(t, r)
	if mode.Opcode != outputEventMode {
		t.Fatalf("expected a mode event, got opcode %d", mode.Opcode)
	}
	modeDec := NewDecoder(mode.Args)
	flags, err := modeDec.Uint32()
	if err != nil || flags != modeCurrent|modePreferred {
		t.Fatalf("mode flags = %d, want %d (err %v)", flags, modeCurrent|modePreferred, err)
	}
	width, _ := modeDec.Int32()
	height, _ := modeDec.Int32()
	if width != 1920 || height != 1080 {
		t.Fatalf("mode size = %dx%d, want 1920x1080", width, height)
	}

	nameEvt := clientRead(t, r)
	if nameEvt.Opcode != outputEventName {
		t.Fatalf("expected a name event, got opcode %d", nameEvt.Opcode)
	}
	nameDec := NewDecoder(nameEvt.Args)
	gotName, err := nameDec.String()
	if err != nil || gotName != identity.Name {
		t.Fatalf("name = %q, want %q (err %v)", gotName, identity.Name, err)
	}

	done := clientRead(t, r)
	if done.Opcode != outputEventDone {
		t.Fatalf("expected a done event, got opcode %d", done.Opcode)
	}
}
