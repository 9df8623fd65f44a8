package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallService(t *testing.T) {
	dir := t.TempDir()
	s := Service{
		UnitPath:   filepath.Join(dir, "systemd", "tstat-bridge.service"),
		User:       "pi",
		WorkDir:    "/opt/tstat-bridge",
		Binary:     "/usr/local/bin/tstat-bridge",
		ConfigFile: "/etc/tstat-bridge/params.json",
	}

	require.NoError(t, InstallService(s))
	assert.Equal(t, "tstat-bridge", s.Name())

	data, err := os.ReadFile(s.UnitPath)
	require.NoError(t, err)
	unit := string(data)
	assert.Contains(t, unit, "User=pi")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/tstat-bridge -config-file /etc/tstat-bridge/params.json -log-level info")
	assert.Contains(t, unit, "Restart=on-failure")
}

func TestInstallService_MissingFields(t *testing.T) {
	err := InstallService(Service{UnitPath: filepath.Join(t.TempDir(), "x.service")})
	assert.Error(t, err)
}
