package db

import (
	"database/sql"
	"fmt"
	"time"
)

type StoredReading struct {
	Time  time.Time `json:"time"`
	Point string    `json:"point"`
	Unit  string    `json:"unit,omitempty"`
	Raw   float64   `json:"raw"`
	Value float64   `json:"value"`
}

type StoredOutcome struct {
	BatchID   string    `json:"batch_id"`
	AppliedAt time.Time `json:"applied_at"`
	Seq       int       `json:"seq"`
	Point     string    `json:"point"`
	Value     float64   `json:"value"`
	Raw       *float64  `json:"raw,omitempty"`
	Accepted  bool      `json:"accepted"`
	Error     string    `json:"error,omitempty"`
}

// LatestReadings returns the most recent reading of every point, keyed by
// point name.
func LatestReadings(db *sql.DB) (map[string]StoredReading, error) {
	rows, err := db.Query(`
		SELECT r.time_ns, r.point, r.unit, r.raw, r.value
		FROM readings r
		JOIN (SELECT point, MAX(time_ns) AS t FROM readings GROUP BY point) latest
		  ON latest.point = r.point AND latest.t = r.time_ns`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]StoredReading)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out[r.Point] = r
	}
	return out, rows.Err()
}

// PointHistory returns up to limit readings of one point, newest first.
func PointHistory(db *sql.DB, point string, limit int) ([]StoredReading, error) {
	rows, err := db.Query(`SELECT time_ns, point, unit, raw, value FROM readings WHERE point = ? ORDER BY time_ns DESC LIMIT ?`, point, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", point, err)
	}
	defer rows.Close()

	var out []StoredReading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReading(rows *sql.Rows) (StoredReading, error) {
	var (
		r  StoredReading
		ts int64
	)
	if err := rows.Scan(&ts, &r.Point, &r.Unit, &r.Raw, &r.Value); err != nil {
		return r, fmt.Errorf("failed to scan reading: %w", err)
	}
	r.Time = time.Unix(0, ts)
	return r, nil
}

// FailureCount returns how many read failures were recorded for point since t.
func FailureCount(db *sql.DB, point string, since time.Time) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM read_failures WHERE point = ? AND time_ns >= ?`, point, since.UnixNano()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures for %s: %w", point, err)
	}
	return n, nil
}

// RecentCommands returns the outcomes of the last limit command entries,
// newest first.
func RecentCommands(db *sql.DB, limit int) ([]StoredOutcome, error) {
	rows, err := db.Query(`SELECT batch_id, applied_at, seq, point, value, raw, accepted, error FROM commands ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var out []StoredOutcome
	for rows.Next() {
		var (
			o       StoredOutcome
			at      string
			raw     sql.NullFloat64
			errText sql.NullString
		)
		if err := rows.Scan(&o.BatchID, &at, &o.Seq, &o.Point, &o.Value, &raw, &o.Accepted, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		o.AppliedAt, _ = time.Parse(time.RFC3339Nano, at)
		if raw.Valid {
			v := raw.Float64
			o.Raw = &v
		}
		o.Error = errText.String
		out = append(out, o)
	}
	return out, rows.Err()
}
