package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/windfield/config"
)

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// All methods are nil-safe
	assert.NoError(t, om.WriteStats(FieldStats{}))
	assert.NoError(t, om.WriteFetch(FetchRecord{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteConfig(nil))
	assert.Equal(t, "", om.Dir())
	assert.NoError(t, om.Close())
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteFetch(NewFetchRecord(1, 100, 100, 2, 100, 250*time.Millisecond, nil)))
	require.NoError(t, om.WriteFetch(NewFetchRecord(2, 50, 0, 1, 100, time.Second, errors.New("status 503"))))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "fetches.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "frame,points,written,failed,error,duration_ms,in_flight,grid_cells", lines[0])
	assert.Equal(t, "1,100,100,false,,250,2,100", lines[1])
	assert.Contains(t, lines[2], "true,status 503")
}

func TestOutputManagerWritesConfig(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	require.NoError(t, err)
	defer om.Close()

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, om.WriteConfig(cfg))

	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Fetch, loaded.Fetch)
	assert.Equal(t, dir, om.Dir())
}
