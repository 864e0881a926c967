package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryNamedShaderIsEmbedded(t *testing.T) {
	for _, name := range []string{
		ShaderSimulate, ShaderWaterMap, ShaderTopView, ShaderSky, ShaderGround,
		ShaderWater, ShaderCombine, ShaderDebugView, ShaderNormals,
		SnippetFullscreen, SnippetMeshInputs,
	} {
		src, err := Shader(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, src, name)
	}
}

func TestUnknownShader(t *testing.T) {
	_, err := Shader("missing")
	assert.Error(t, err)
	assert.Panics(t, func() { MustShader("missing") })
}

func TestSnippets(t *testing.T) {
	s := Snippets()
	assert.Contains(t, s, SnippetFullscreen)
	assert.Contains(t, s[SnippetMeshInputs], "@location(2) uv")
}
