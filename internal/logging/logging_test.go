package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToFile(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	path := filepath.Join(t.TempDir(), "bridge.log")
	Init(zerolog.InfoLevel, path)

	log.Debug().Msg("hidden")
	log.Info().Str("point", "mode").Msg("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"point":"mode"`)
	assert.Contains(t, string(data), "visible")
	assert.NotContains(t, string(data), "hidden")
}

func TestInit_BadPathPanics(t *testing.T) {
	prev := log.Logger
	defer func() { log.Logger = prev }()

	assert.Panics(t, func() {
		Init(zerolog.InfoLevel, filepath.Join(t.TempDir(), "missing", "dir", "bridge.log"))
	})
}
