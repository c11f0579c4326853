package runconfig_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/muse"
	"github.com/vk/muse/internal/runconfig"
)

const manifestBody = `
endpoint "posts" {
  base_url = "http://localhost:8080"
  latency  = "10ms"
}

seed "memsource.Request" {
  identity = "a"
  response = {
    body = {
      good = "job"
    }
  }
}

concurrency {
  max_levels = 42
}
`

func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(manifestBody), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t)
	m, err := runconfig.Load(path)
	require.NoError(t, err)

	require.Len(t, m.Endpoints, 1)
	assert.Equal(t, "posts", m.Endpoints[0].Name)
	assert.Equal(t, "http://localhost:8080", m.Endpoints[0].BaseURL)
	assert.Equal(t, "10ms", m.Endpoints[0].Latency)

	require.Len(t, m.Seeds, 1)
	assert.Equal(t, "memsource.Request", m.Seeds[0].Kind)
	assert.Equal(t, "a", m.Seeds[0].Identity)

	require.NotNil(t, m.Concurrency)
	assert.Equal(t, 42, m.ResolveMaxLevels())
}

type fakeKind struct{}

func TestSeedCache(t *testing.T) {
	path := writeManifest(t)
	m, err := runconfig.Load(path)
	require.NoError(t, err)

	cache := muse.NewCache()
	reg := runconfig.KindRegistry{"memsource.Request": reflect.TypeOf(fakeKind{})}
	require.NoError(t, runconfig.SeedCache(cache, reg, m))

	got, ok := cache.Lookup(reflect.TypeOf(fakeKind{}), "a")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"body": map[string]any{"good": "job"}}, got)
}

func TestSeedCache_UnknownKind(t *testing.T) {
	path := writeManifest(t)
	m, err := runconfig.Load(path)
	require.NoError(t, err)

	cache := muse.NewCache()
	err = runconfig.SeedCache(cache, runconfig.KindRegistry{}, m)
	assert.Error(t, err)
}
