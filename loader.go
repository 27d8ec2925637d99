package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jLoader loads classes, methods and call edges into a Neo4j database
// using batch UNWIND queries.
type Neo4jLoader struct {
	driver    neo4j.DriverWithContext
	ctx       context.Context
	logger    *slog.Logger
	batchSize int
}

// NewNeo4jLoader connects to Neo4j and returns a ready-to-use loader.
func NewNeo4jLoader(ctx context.Context, uri, user, password string, batchSize int, logger *slog.Logger) (*Neo4jLoader, error) {
	if password == "" {
		return nil, errors.New("neo4j password is required")
	}
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect to neo4j at %s: %w", uri, err)
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Neo4jLoader{driver: driver, ctx: ctx, logger: logger, batchSize: batchSize}, nil
}

// Close releases the underlying Neo4j driver resources.
func (l *Neo4jLoader) Close() {
	l.driver.Close(l.ctx)
}

// runCypher runs a single Cypher statement with optional parameters.
func (l *Neo4jLoader) runCypher(cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(l.ctx, l.driver, cypher, params, neo4j.EagerResultTransformer)
	return err
}

// runBatches runs an UNWIND $batch statement once per batch of rows.
func (l *Neo4jLoader) runBatches(cypher string, rows []map[string]any) error {
	for _, batch := range chunk(rows, l.batchSize) {
		if err := l.runCypher(cypher, map[string]any{"batch": batch}); err != nil {
			return err
		}
	}
	return nil
}

func chunk[T any](rows []T, size int) [][]T {
	var out [][]T
	for size < len(rows) {
		rows, out = rows[size:], append(out, rows[:size:size])
	}
	if len(rows) > 0 {
		out = append(out, rows)
	}
	return out
}

// CleanGraph removes every previously loaded class, method and call edge.
func (l *Neo4jLoader) CleanGraph() error {
	l.logger.Info("cleaning existing call graph data")
	queries := []string{
		"MATCH ()-[r:CALLS]->() DELETE r",
		"MATCH (n:Method) DETACH DELETE n",
		"MATCH (n:Class) DETACH DELETE n",
	}
	for _, q := range queries {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// CleanCalls removes the CALLS edges of one algorithm so a rerun replaces
// them.
func (l *Neo4jLoader) CleanCalls(algorithm string) error {
	l.logger.Info("cleaning call edges", "algorithm", algorithm)
	return l.runCypher(
		"MATCH ()-[r:CALLS {algorithm: $algorithm}]->() DELETE r",
		map[string]any{"algorithm": algorithm},
	)
}

// CreateIndexes ensures the required Neo4j indexes exist.
func (l *Neo4jLoader) CreateIndexes() error {
	l.logger.Info("creating indexes")
	indexes := []string{
		"CREATE INDEX class_name IF NOT EXISTS FOR (n:Class) ON (n.name)",
		"CREATE INDEX method_signature IF NOT EXISTS FOR (n:Method) ON (n.signature)",
	}
	for _, q := range indexes {
		if err := l.runCypher(q, nil); err != nil {
			return err
		}
	}
	return nil
}

// LoadClasses upserts Class nodes and their EXTENDS edges.
func (l *Neo4jLoader) LoadClasses(classes []ClassNode) error {
	l.logger.Info("loading classes", "count", len(classes))
	rows := make([]map[string]any, 0, len(classes))
	var supers []map[string]any
	for _, c := range classes {
		rows = append(rows, map[string]any{"name": c.Name, "interface": c.Interface})
		if c.Super != "" {
			supers = append(supers, map[string]any{"sub": c.Name, "super": c.Super})
		}
	}
	err := l.runBatches(
		`UNWIND $batch AS row
		 MERGE (n:Class {name: row.name})
		 SET n.interface = row.interface`,
		rows,
	)
	if err != nil {
		return err
	}
	return l.runBatches(
		`UNWIND $batch AS row
		 MATCH (sub:Class {name: row.sub}), (super:Class {name: row.super})
		 MERGE (sub)-[:EXTENDS]->(super)`,
		supers,
	)
}

// LoadImplements upserts IMPLEMENTS edges from classes to interfaces and
// EXTENDS edges between interfaces.
func (l *Neo4jLoader) LoadImplements(edges []ImplementsEdge) error {
	l.logger.Info("loading implements edges", "count", len(edges))
	var impls, extends []map[string]any
	for _, e := range edges {
		row := map[string]any{"class": e.Class, "iface": e.Interface}
		if e.Extends {
			extends = append(extends, row)
		} else {
			impls = append(impls, row)
		}
	}
	err := l.runBatches(
		`UNWIND $batch AS row
		 MATCH (c:Class {name: row.class}), (i:Class {name: row.iface})
		 MERGE (c)-[:IMPLEMENTS]->(i)`,
		impls,
	)
	if err != nil {
		return err
	}
	return l.runBatches(
		`UNWIND $batch AS row
		 MATCH (c:Class {name: row.class}), (i:Class {name: row.iface})
		 MERGE (c)-[:EXTENDS]->(i)`,
		extends,
	)
}

// LoadMethods upserts Method nodes and DECLARES edges from their classes.
func (l *Neo4jLoader) LoadMethods(methods []MethodNode) error {
	l.logger.Info("loading methods", "count", len(methods))
	rows := make([]map[string]any, 0, len(methods))
	for _, m := range methods {
		rows = append(rows, map[string]any{
			"signature": m.Signature, "class": m.Class, "name": m.Name,
			"params": m.Params, "return": m.Return,
			"static": m.Static, "has_body": m.HasBody,
		})
	}
	return l.runBatches(
		`UNWIND $batch AS row
		 MERGE (n:Method {signature: row.signature})
		 SET n.name = row.name, n.class = row.class, n.params = row.params,
		     n.return = row.return, n.static = row.static, n.has_body = row.has_body
		 WITH n, row
		 MATCH (c:Class {name: row.class})
		 MERGE (c)-[:DECLARES]->(n)`,
		rows,
	)
}

// LoadCalls upserts CALLS relationships between Method nodes. Edges of
// different algorithms are kept apart by the algorithm property.
func (l *Neo4jLoader) LoadCalls(calls []CallEdge) error {
	l.logger.Info("loading call edges", "count", len(calls))
	rows := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		rows = append(rows, map[string]any{
			"caller":    c.Caller,
			"callee":    c.Callee,
			"algorithm": c.Algorithm,
		})
	}
	return l.runBatches(
		`UNWIND $batch AS row
		 MERGE (caller:Method {signature: row.caller})
		 MERGE (callee:Method {signature: row.callee})
		 MERGE (caller)-[:CALLS {algorithm: row.algorithm}]->(callee)`,
		rows,
	)
}
