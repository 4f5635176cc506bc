package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/certguard/caupdater/internal/history"
)

// Sink sends run-history events to ClickHouse using the official Go
// client, for large fleets where update results feed analytics.
type Sink struct {
	conn  driver.Conn
	table string
}

// New connects to the ClickHouse native endpoint at addr and writes to
// the given table. The table must exist; this sink does not manage DDL
// because column engines are a site decision.
func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return &Sink{conn: conn, table: table}, nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (occurred_at, hostname, outcome, exit_code, detail) VALUES (?, ?, ?, ?, ?)`,
		s.table)
	if err := s.conn.Exec(ctx, query, e.OccurredAt, e.Hostname, e.Outcome, int32(e.ExitCode), e.Detail); err != nil {
		return fmt.Errorf("failed to insert event into ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
