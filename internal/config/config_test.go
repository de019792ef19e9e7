package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SCREENS_CONFIG", "")
	t.Chdir(t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, ":8080", c.Server.Addr())
	assert.Equal(t, "", c.Database.DSN)
	assert.True(t, c.Database.Seed)
	assert.Equal(t, 256, c.Events.Buffer)
	assert.True(t, c.Events.Log)
	assert.Equal(t, 10000, c.Events.History)
	assert.Equal(t, 4*time.Hour, c.Session.MaxAge)
	assert.Equal(t, 30*time.Minute, c.Session.IdleTimeout)
	assert.Equal(t, 25, c.List.ItemsPerPage)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screens.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000

[database]
dsn = "file:screens.db"

[session]
idle_timeout = "5m"

[list]
items_per_page = 50
`), 0o644))
	t.Setenv("SCREENS_CONFIG", path)
	t.Setenv("SCREENS_LIST_ITEMS_PER_PAGE", "10")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "file:screens.db", c.Database.DSN)
	assert.Equal(t, 5*time.Minute, c.Session.IdleTimeout)
	assert.Equal(t, 10, c.List.ItemsPerPage, "env overrides the file")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("SCREENS_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("SCREENS_CONFIG", "")
	t.Chdir(t.TempDir())
	t.Setenv("SCREENS_SERVER_PORT", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "server.port")
}
