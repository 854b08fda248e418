package report

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/crazyharmony/traf-exercize/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS report_summary (
	timestamp         TEXT PRIMARY KEY,
	records_processed INTEGER NOT NULL,
	records_rejected  INTEGER NOT NULL,
	unique_macs       INTEGER NOT NULL,
	unique_ips        INTEGER NOT NULL,
	unique_pairs      INTEGER NOT NULL,
	total_bytes       INTEGER NOT NULL,
	total_time        REAL NOT NULL,
	average_speed     REAL NOT NULL,
	udp_bytes         INTEGER NOT NULL,
	udp_time          REAL NOT NULL,
	average_udp_speed REAL NOT NULL,
	peak_speed        REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS report_nodes (
	timestamp TEXT NOT NULL,
	rank      INTEGER NOT NULL,
	mac       TEXT NOT NULL,
	bytes     INTEGER NOT NULL,
	time      REAL NOT NULL,
	speed     REAL NOT NULL,
	PRIMARY KEY (timestamp, rank)
);

CREATE TABLE IF NOT EXISTS report_mutual (
	timestamp TEXT NOT NULL,
	mac       TEXT NOT NULL,
	partner   TEXT NOT NULL,
	protocol  TEXT NOT NULL,
	records   INTEGER NOT NULL,
	PRIMARY KEY (timestamp, mac, partner, protocol)
);

CREATE TABLE IF NOT EXISTS report_proxies (
	timestamp TEXT NOT NULL,
	mac       TEXT NOT NULL,
	PRIMARY KEY (timestamp, mac)
);
`

// SQLiteWriter persists reports to a local SQLite database file. It
// implements the model.Writer interface.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at dbPath and ensures the
// report schema exists.
func NewSQLiteWriter(dbPath string) (model.Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts one report snapshot inside a single transaction.
func (w *SQLiteWriter) Write(payload interface{}, timestamp string) error {
	rep, ok := payload.(*Report)
	if !ok {
		return fmt.Errorf("invalid payload type for SQLiteWriter: expected *report.Report, got %T", payload)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var peakSpeed float64
	if rep.Peak != nil {
		peakSpeed = rep.Peak.Speed
	}
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO report_summary
		(timestamp, records_processed, records_rejected, unique_macs, unique_ips,
		 unique_pairs, total_bytes, total_time, average_speed, udp_bytes, udp_time,
		 average_udp_speed, peak_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		timestamp, rep.RecordsProcessed, rep.RecordsRejected, rep.UniqueMACs,
		rep.UniqueIPs, rep.UniqueMACIPPairs, rep.TotalBytes, rep.TotalTime,
		rep.AverageSpeed, rep.UDPBytes, rep.UDPTime, rep.AverageUDPSpeed, peakSpeed,
	); err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	for i, node := range rep.TopNodes {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO report_nodes (timestamp, rank, mac, bytes, time, speed)
			VALUES (?, ?, ?, ?, ?, ?)`,
			timestamp, i+1, node.MAC, node.Bytes, node.Time, node.Speed(),
		); err != nil {
			return fmt.Errorf("failed to insert node row: %w", err)
		}
	}

	for _, pair := range rep.MutualPairs {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO report_mutual (timestamp, mac, partner, protocol, records)
			VALUES (?, ?, ?, ?, ?)`,
			timestamp, pair.MAC, pair.Partner, pair.Protocol, pair.Records,
		); err != nil {
			return fmt.Errorf("failed to insert mutual row: %w", err)
		}
	}

	for _, mac := range rep.ProxyCandidates {
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO report_proxies (timestamp, mac) VALUES (?, ?)`,
			timestamp, mac,
		); err != nil {
			return fmt.Errorf("failed to insert proxy row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report snapshot: %w", err)
	}
	log.Printf("Successfully wrote report snapshot %s to SQLite.", timestamp)
	return nil
}

// Close releases the database handle.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
