package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/thatsimonsguy/tstat-bridge/db"
	"github.com/thatsimonsguy/tstat-bridge/internal/config"
	"github.com/thatsimonsguy/tstat-bridge/internal/logging"
	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
	"github.com/thatsimonsguy/tstat-bridge/internal/transport"
	"github.com/thatsimonsguy/tstat-bridge/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var configFile, dbPath, command, point, value, unitPath, user, binary string
	var limit int
	var keep time.Duration
	flag.StringVar(&configFile, "config-file", "params.json", "Path to bridge config file")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite history database (defaults to db_path from the config)")
	flag.StringVar(&command, "cmd", "", "Command to run: points, get-state, set, history, commands, prune, install-service")
	flag.StringVar(&point, "point", "", "Point name for set and history")
	flag.StringVar(&value, "value", "", "Value for set")
	flag.IntVar(&limit, "limit", 20, "Rows to show for history and commands")
	flag.DurationVar(&keep, "keep", 30*24*time.Hour, "History to keep when pruning")
	flag.StringVar(&unitPath, "unit", "/etc/systemd/system/tstat-bridge.service", "Unit file for install-service")
	flag.StringVar(&user, "user", "pi", "Service user for install-service")
	flag.StringVar(&binary, "binary", "/usr/local/bin/tstat-bridge", "Bridge binary for install-service")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of tstat-debug:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	logging.Init(zerolog.WarnLevel, "")

	cfg, err := config.ReadFile(configFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	switch command {
	case "history", "commands", "prune":
		if dbPath == "" {
			fmt.Println("Error: no history database; set -db or db_path")
			os.Exit(1)
		}
	}

	switch command {
	case "points":
		err = printPoints(cfg)
	case "get-state":
		err = getState(cfg)
	case "set":
		if point == "" || value == "" {
			fmt.Println("Error: -point and -value are required")
			os.Exit(1)
		}
		err = set(cfg, point, value)
	case "history":
		if point == "" {
			fmt.Println("Error: -point is required")
			os.Exit(1)
		}
		err = history(dbPath, point, limit)
	case "commands":
		err = commands(dbPath, limit)
	case "prune":
		var n int64
		n, err = db.PruneCLI(dbPath, keep)
		if err == nil {
			fmt.Printf("Pruned %d rows\n", n)
		}
	case "install-service":
		workDir, _ := os.Getwd()
		err = startup.InstallService(startup.Service{
			UnitPath:   unitPath,
			User:       user,
			WorkDir:    workDir,
			Binary:     binary,
			ConfigFile: cfg.ConfigFile,
		})
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func newProxy(cfg config.Config) (*proxy.Proxy, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return proxy.New(registry, transport.NewHTTP(transport.Config{
		Host:     cfg.IP,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  cfg.RequestTimeout(),
	}), proxy.WithDevice(cfg.URI)), nil
}

func printPoints(cfg config.Config) error {
	registry, err := cfg.Registry()
	if err != nil {
		return err
	}
	for _, d := range registry.All() {
		fmt.Printf("%-18s %-8s %-6s %-3s %-16s %s\n", d.Name, d.Address, d.Kind, d.Access, d.Range, d.Unit)
	}
	return nil
}

func getState(cfg config.Config) error {
	p, err := newProxy(cfg)
	if err != nil {
		return err
	}
	snap := p.GetState(context.Background())
	fmt.Printf("time: %s\n", snap.Time.Format(time.RFC3339))
	for _, r := range snap.Readings {
		fmt.Printf("%-18s %g %s (raw %g)\n", r.Point, r.Value, r.Unit, r.Raw)
	}
	for _, f := range snap.Failures {
		fmt.Printf("%-18s FAILED: %v\n", f.Point, f.Err)
	}
	return nil
}

func set(cfg config.Config, point, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}
	p, err := newProxy(cfg)
	if err != nil {
		return err
	}

	res := p.Apply(context.Background(), proxy.Command{{Point: point, Value: v}})
	if rejected := res.Rejected(); len(rejected) > 0 {
		return rejected[0].Err
	}
	fmt.Printf("%s set to %g (raw %g)\n", point, v, res.Outcomes[0].Raw)
	return nil
}

func history(dbPath, point string, limit int) error {
	readings, err := db.PointHistoryCLI(dbPath, point, limit)
	if err != nil {
		return err
	}
	for _, r := range readings {
		fmt.Printf("%s %g %s\n", r.Time.Format(time.RFC3339), r.Value, r.Unit)
	}
	return nil
}

func commands(dbPath string, limit int) error {
	outcomes, err := db.RecentCommandsCLI(dbPath, limit)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		status := "accepted"
		if !o.Accepted {
			status = "rejected: " + o.Error
		}
		fmt.Printf("%s %s %-18s %g %s\n", o.AppliedAt.Format(time.RFC3339), o.BatchID[:8], o.Point, o.Value, status)
	}
	return nil
}
