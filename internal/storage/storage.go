// Package storage provides optional TimescaleDB archival of feature
// vectors and alerts. Archival is disabled unless storage.enabled is set
// in the configuration, and never sits on the pipeline's blocking path:
// the pipeline hands individual records to a background writer goroutine
// via bounded channels, and that goroutine batches them.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/netweaver/nidcore/internal/alert"
	"github.com/netweaver/nidcore/internal/feature"
)

// Config holds connection parameters for the archival database.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	PoolSize int
}

// Client wraps a pgxpool.Pool configured for the feature/alert archival
// schema, adapted from the teacher's flow-record archival client.
type Client struct {
	pool *pgxpool.Pool
}

// NewClient dials the configured database and verifies connectivity with
// a ping before returning.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.PoolSize,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("storage: parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.PoolSize)
	poolConfig.MinConns = int32(cfg.PoolSize / 4)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("storage: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &Client{pool: pool}, nil
}

// Close releases all pooled connections.
func (c *Client) Close() {
	c.pool.Close()
}

// HealthCheck pings the archival database.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Stat returns connection pool statistics for the stats reporter.
func (c *Client) Stat() *pgxpool.Stat {
	return c.pool.Stat()
}

var featureColumns = append([]string{"time", "flow_key"}, feature.Header...)

// InsertFeatureVectors bulk-loads vectors into the feature_vectors
// hypertable via CopyFrom, mirroring the teacher's flow_records
// batch-insert pattern.
func (c *Client) InsertFeatureVectors(ctx context.Context, ts time.Time, flowKeys []string, vectors []*feature.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if len(flowKeys) != len(vectors) {
		return fmt.Errorf("storage: flowKeys/vectors length mismatch: %d != %d", len(flowKeys), len(vectors))
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("storage: acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Conn().CopyFrom(
		ctx,
		pgx.Identifier{"feature_vectors"},
		featureColumns,
		pgx.CopyFromSlice(len(vectors), func(i int) ([]interface{}, error) {
			values := vectors[i].Values()
			row := make([]interface{}, 0, len(values)+2)
			row = append(row, ts, flowKeys[i])
			for _, v := range values {
				row = append(row, v)
			}
			return row, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("storage: insert feature vectors: %w", err)
	}
	return nil
}

var alertColumns = []string{
	"time", "alert_id", "rule_id", "rule_name", "severity", "packet_id",
	"src_ip", "dst_ip", "src_port", "dst_port", "protocol",
	"description", "matched_content",
}

// InsertAlerts bulk-loads alerts into the alerts hypertable.
func (c *Client) InsertAlerts(ctx context.Context, alerts []alert.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("storage: acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Conn().CopyFrom(
		ctx,
		pgx.Identifier{"alerts"},
		alertColumns,
		pgx.CopyFromSlice(len(alerts), func(i int) ([]interface{}, error) {
			a := alerts[i]
			return []interface{}{
				a.Timestamp, a.AlertID, a.RuleID, a.RuleName, a.Severity.String(), a.PacketID,
				a.SrcIP, a.DstIP, a.SrcPort, a.DstPort, a.Protocol,
				a.Description, a.MatchedContent,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("storage: insert alerts: %w", err)
	}
	return nil
}
