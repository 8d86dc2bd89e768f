package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nova.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func Test_LoadProject_sourcesAndBuildOptions(t *testing.T) {
	path := writeProjectFile(t, `
		sources = ["src", "lib/extra.nova"]

		[build]
		emit_ir = true
		cache_file = "nova-cache.db"
	`)

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lib/extra.nova"}, p.Sources)
	assert.True(t, p.Build.EmitIR)
	assert.Equal(t, "nova-cache.db", p.Build.CacheFile)
}

func Test_LoadProject_secretIsHashedAndNeverKeptPlaintext(t *testing.T) {
	path := writeProjectFile(t, `
		sources = ["src"]

		[server]
		addr = ":8080"
		secret = "hunter2"
	`)

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.Empty(t, p.Server.Secret)
	assert.NotEmpty(t, p.Server.SecretHash)
	assert.True(t, p.VerifySecret("hunter2"))
	assert.False(t, p.VerifySecret("wrong"))
}

func Test_LoadProject_noServerSectionMeansNoSecret(t *testing.T) {
	path := writeProjectFile(t, `sources = ["src"]`)

	p, err := LoadProject(path)
	require.NoError(t, err)
	assert.False(t, p.VerifySecret("anything"))
}

func Test_LoadProject_missingFileIsAnError(t *testing.T) {
	_, err := LoadProject(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}
