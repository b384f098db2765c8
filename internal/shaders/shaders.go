// Package shaders embeds the precompiled SPIR-V that every display pipeline
// is built with. Runtime shader compilation is out of scope; display.vert
// and display.frag are kept alongside their compiled output for reference
// but only the .spv files are ever read by the module.
package shaders

import _ "embed"

//go:embed display.vert.spv
var vertexSPIRV []byte

//go:embed display.frag.spv
var fragmentSPIRV []byte

// Vertex returns the compiled vertex shader module: a full-screen triangle
// with no vertex input, matching the pipeline's empty vertex input state.
func Vertex() []byte { return vertexSPIRV }

// Fragment returns the compiled fragment shader module.
func Fragment() []byte { return fragmentSPIRV }
