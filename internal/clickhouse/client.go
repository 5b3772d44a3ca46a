// Package clickhouse reads ranked tier snapshots and keeps player tiers current.
package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/cockroachdb/errors"
)

// Options configures the ClickHouse connection
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Client queries ranked snapshots
type Client struct {
	conn driver.Conn
}

// NewClient opens and pings a ClickHouse connection
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open clickhouse")
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "ping clickhouse")
	}
	return &Client{conn: conn}, nil
}

// LatestTiers returns the most recent tier per summoner name seen in the last 30 days
func (c *Client) LatestTiers(ctx context.Context) (map[string]string, error) {
	const query = `
		SELECT
			summoner_name,
			argMax(tier, fetched_at) AS latest_tier
		FROM ranked_snapshots
		WHERE fetched_at >= now() - INTERVAL 30 DAY
		GROUP BY summoner_name
	`

	rows, err := c.conn.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query latest tiers")
	}
	defer rows.Close()

	tiers := make(map[string]string)
	for rows.Next() {
		var name, tier string
		if err := rows.Scan(&name, &tier); err != nil {
			return nil, errors.Wrap(err, "scan tier row")
		}
		tiers[name] = tier
	}
	return tiers, errors.Wrap(rows.Err(), "iterate tier rows")
}

func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
