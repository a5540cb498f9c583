package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

func TestKeepaliveCmd_Use(t *testing.T) {
	assert.Equal(t, "keepalive", keepaliveCmd.Use)
}

func TestKeepaliveCmd_ReportsHealthyTick(t *testing.T) {
	_, fk, _, cleanup := setupTestServices()
	defer cleanup()
	fk.tick = domain.KeepaliveTick{EmbeddingOK: true, GenerationOK: true, IndexOK: true}
	fk.hasTick = true

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"keepalive"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.True(t, fk.started)
	assert.Contains(t, buf.String(), "Last tick: healthy")
}

func TestKeepaliveCmd_ReportsUnhealthyTick(t *testing.T) {
	_, fk, _, cleanup := setupTestServices()
	defer cleanup()
	fk.tick = domain.KeepaliveTick{EmbeddingOK: true, Err: "generation probe failed"}
	fk.hasTick = true

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"keepalive"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Last tick: unhealthy (generation probe failed)")
}
