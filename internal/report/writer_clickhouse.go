package report

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/crazyharmony/traf-exercize/internal/config"
	"github.com/crazyharmony/traf-exercize/internal/model"
)

const createSummaryTableStatement = `
CREATE TABLE IF NOT EXISTS traffic_report_summary (
    Timestamp        DateTime,
    RecordsProcessed UInt64,
    RecordsRejected  UInt64,
    UniqueMACs       UInt64,
    UniqueIPs        UInt64,
    UniquePairs      UInt64,
    TotalBytes       UInt64,
    TotalTime        Float64,
    AverageSpeed     Float64,
    UDPBytes         UInt64,
    UDPTime          Float64,
    AverageUDPSpeed  Float64,
    PeakSpeed        Float64,
    ProxyCandidates  Array(String)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY Timestamp;
`

const createNodesTableStatement = `
CREATE TABLE IF NOT EXISTS traffic_report_nodes (
    Timestamp DateTime,
    Rank      UInt32,
    MAC       String,
    Bytes     UInt64,
    Time      Float64,
    Speed     Float64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, Rank);
`

const createMutualTableStatement = `
CREATE TABLE IF NOT EXISTS traffic_report_mutual (
    Timestamp DateTime,
    MAC       String,
    Partner   String,
    Protocol  String,
    Records   UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (Timestamp, MAC);
`

// ClickHouseWriter persists reports to ClickHouse. It implements the
// model.Writer interface.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the report tables
// exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createSummaryTableStatement, createNodesTableStatement, createMutualTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured report tables exist.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts one report snapshot into the three report tables.
func (w *ClickHouseWriter) Write(payload interface{}, timestamp string) error {
	rep, ok := payload.(*Report)
	if !ok {
		return fmt.Errorf("invalid payload type for ClickHouseWriter: expected *report.Report, got %T", payload)
	}

	snapshotTime, err := time.Parse("2006-01-02_15-04-05", timestamp)
	if err != nil {
		snapshotTime = rep.GeneratedAt
	}

	var peakSpeed float64
	if rep.Peak != nil {
		peakSpeed = rep.Peak.Speed
	}
	proxies := rep.ProxyCandidates
	if proxies == nil {
		proxies = []string{}
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO traffic_report_summary")
	if err != nil {
		return fmt.Errorf("failed to prepare summary batch: %w", err)
	}
	if err := batch.Append(
		snapshotTime,
		uint64(rep.RecordsProcessed),
		uint64(rep.RecordsRejected),
		uint64(rep.UniqueMACs),
		uint64(rep.UniqueIPs),
		uint64(rep.UniqueMACIPPairs),
		rep.TotalBytes,
		rep.TotalTime,
		rep.AverageSpeed,
		rep.UDPBytes,
		rep.UDPTime,
		rep.AverageUDPSpeed,
		peakSpeed,
		proxies,
	); err != nil {
		return fmt.Errorf("failed to append summary row: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send summary batch: %w", err)
	}

	batch, err = w.conn.PrepareBatch(context.Background(), "INSERT INTO traffic_report_nodes")
	if err != nil {
		return fmt.Errorf("failed to prepare nodes batch: %w", err)
	}
	for i, node := range rep.TopNodes {
		if err := batch.Append(snapshotTime, uint32(i+1), node.MAC, node.Bytes, node.Time, node.Speed()); err != nil {
			return fmt.Errorf("failed to append node row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send nodes batch: %w", err)
	}

	batch, err = w.conn.PrepareBatch(context.Background(), "INSERT INTO traffic_report_mutual")
	if err != nil {
		return fmt.Errorf("failed to prepare mutual batch: %w", err)
	}
	for _, pair := range rep.MutualPairs {
		if err := batch.Append(snapshotTime, pair.MAC, pair.Partner, pair.Protocol, uint64(pair.Records)); err != nil {
			return fmt.Errorf("failed to append mutual row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send mutual batch: %w", err)
	}

	log.Printf("Successfully wrote report snapshot %s to ClickHouse (%d nodes, %d mutual pairs).",
		timestamp, len(rep.TopNodes), len(rep.MutualPairs))
	return nil
}
