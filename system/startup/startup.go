package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Service describes the systemd unit that runs the bridge.
type Service struct {
	UnitPath   string
	User       string
	WorkDir    string
	Binary     string
	ConfigFile string
	LogLevel   string
}

func (s Service) Name() string {
	return strings.TrimSuffix(filepath.Base(s.UnitPath), ".service")
}

func (s Service) Unit() string {
	logLevel := s.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	return fmt.Sprintf(`[Unit]
Description=Thermostat register bridge
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
User=%s
WorkingDirectory=%s
ExecStart=%s -config-file %s -log-level %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, s.User, s.WorkDir, s.Binary, s.ConfigFile, logLevel)
}

func InstallService(s Service) error {
	if s.UnitPath == "" || s.Binary == "" || s.ConfigFile == "" {
		return fmt.Errorf("service unit path, binary and config file are required")
	}
	if err := os.MkdirAll(filepath.Dir(s.UnitPath), 0755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}
	return os.WriteFile(s.UnitPath, []byte(s.Unit()), 0644)
}

// EnableService reloads systemd and enables the unit to start at boot.
func EnableService(s Service) error {
	for _, args := range [][]string{
		{"daemon-reload"},
		{"enable", "--now", s.Name()},
	} {
		cmd := exec.Command("systemctl", args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}
