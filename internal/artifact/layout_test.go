package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutDirectories(t *testing.T) {
	l := Layout{BuildDir: t.TempDir()}

	out, err := l.OutputDir("core", "cmake")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.BuildDir, "cmake", "core"), out)

	obj, err := l.ObjectsDir("core", "cmake")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "obj"), obj)

	deps, err := l.DepsDir("core", "cmake")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "deps"), deps)

	for _, dir := range []string{out, obj, deps} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
