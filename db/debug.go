package db

import (
	"database/sql"
	"time"
)

// The *CLI helpers open dbPath for a single operation and close it again.
// They back the debug command, which may run alongside the bridge.

func LatestReadingsCLI(dbPath string) (map[string]StoredReading, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return LatestReadings(conn)
}

func PointHistoryCLI(dbPath, point string, limit int) ([]StoredReading, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return PointHistory(conn, point, limit)
}

func RecentCommandsCLI(dbPath string, limit int) ([]StoredOutcome, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return RecentCommands(conn, limit)
}

func PruneCLI(dbPath string, keep time.Duration) (int64, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return PruneBefore(conn, time.Now().Add(-keep))
}
