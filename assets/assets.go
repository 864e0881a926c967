// Package assets embeds the WGSL programs used by the water renderer.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// Shader names, without the .wgsl extension.
const (
	ShaderSimulate    = "simulate"
	ShaderWaterMap    = "water_map"
	ShaderTopView     = "top_view"
	ShaderSky         = "sky"
	ShaderGround      = "ground"
	ShaderWater       = "water"
	ShaderCombine     = "combine"
	ShaderDebugView   = "debug_view"
	ShaderNormals     = "normals"
	SnippetFullscreen = "fullscreen"
	SnippetMeshInputs = "mesh_inputs"
)

// Shader returns the embedded WGSL source with the given name.
//
// Parameters:
//   - name: the shader name without extension
//
// Returns:
//   - string: the WGSL source
//   - error: error if no embedded shader has that name
func Shader(name string) (string, error) {
	data, err := shaderFS.ReadFile(path.Join("shaders", name+".wgsl"))
	if err != nil {
		return "", fmt.Errorf("assets: shader %q: %w", name, err)
	}
	return string(data), nil
}

// MustShader is Shader for sources that are compiled into the binary; a miss is a build defect.
func MustShader(name string) string {
	src, err := Shader(name)
	if err != nil {
		panic(err)
	}
	return src
}

// Snippets returns every embedded shader keyed by name, for resolving #include directives.
func Snippets() map[string]string {
	out := map[string]string{}
	entries, _ := fs.ReadDir(shaderFS, "shaders")
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".wgsl")
		out[name] = MustShader(name)
	}
	return out
}
