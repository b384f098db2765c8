package shaders

import (
	"bytes"
	"testing"
)

var spirvMagic = []byte{0x03, 0x02, 0x23, 0x07}

func TestVertexIsValidSPIRV(t *testing.T) {
	code := Vertex()
	if len(code) < 4 || !bytes.Equal(code[:4], spirvMagic) {
		t.Fatalf("vertex shader missing the SPIR-V magic number")
	}
}

func TestFragmentIsValidSPIRV(t *testing.T) {
	code := Fragment()
	if len(code) < 4 || !bytes.Equal(code[:4], spirvMagic) {
		t.Fatalf("fragment shader missing the SPIR-V magic number")
	}
}
