package db

import "time"

// Config describes an embedded SQLite database file.
type Config struct {
	// Path is a file path or ":memory:".
	Path            string
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}
