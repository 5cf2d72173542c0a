// Package graph mirrors the concept, category and event registries into a
// Memgraph (or Neo4j) instance for ad-hoc exploration.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/beacon/internal/config"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type GraphDriver interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error)
	BuildIndices(ctx context.Context) error
	Close(ctx context.Context) error
}

type MemgraphDriver struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphDriver(ctx context.Context, cfg config.MemgraphConfig) (*MemgraphDriver, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("memgraph at %s unreachable: %w", cfg.URI, err)
	}

	slog.InfoContext(ctx, "connected to memgraph", "uri", cfg.URI)
	return &MemgraphDriver{Driver: driver}, nil
}

func (d *MemgraphDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *MemgraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (d *MemgraphDriver) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Concept(uri);",
		"CREATE INDEX ON :Category(uri);",
		"CREATE INDEX ON :Event(uri);",
		"CREATE INDEX ON :Event(event_date);",
	}

	for _, q := range queries {
		if _, err := d.ExecuteQuery(ctx, q, nil); err != nil {
			// existing indices fail the same way
			slog.WarnContext(ctx, "failed to create index", "query", q, "error", err)
		}
	}
	return nil
}
