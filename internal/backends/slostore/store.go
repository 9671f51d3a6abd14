// Package slostore reads SLO definitions (targets and thresholds) from
// Postgres. Definitions give the error-budget view its configured targets;
// without the store, reports still work but carry only API-derived figures.
package slostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Definition is one configured SLO.
type Definition struct {
	ID                 int64     `json:"id"`
	ApplicationID      int       `json:"application_id"`
	ServiceID          int       `json:"service_id"`
	Name               string    `json:"name"`
	TargetPercent      float64   `json:"target_percent"`
	WindowDays         int       `json:"window_days"`
	BurnAlertThreshold float64   `json:"burn_alert_threshold"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Report is the shaped definition payload for the aggregate response.
type Report struct {
	DataSource  string       `json:"data_source"`
	Count       int          `json:"count"`
	Definitions []Definition `json:"definitions"`
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// Open connects to the definition store.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SLO definition store: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

const definitionColumns = `id, application_id, service_id, name, target_percent, window_days, burn_alert_threshold, updated_at`

func scanDefinition(row pgx.Row) (Definition, error) {
	var d Definition
	err := row.Scan(&d.ID, &d.ApplicationID, &d.ServiceID, &d.Name,
		&d.TargetPercent, &d.WindowDays, &d.BurnAlertThreshold, &d.UpdatedAt)
	return d, err
}

// DefinitionsForApplication returns every definition configured for the
// application, newest first.
func (s *Store) DefinitionsForApplication(ctx context.Context, appID int) (*Report, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM slo_definitions WHERE application_id = $1 ORDER BY updated_at DESC`,
		definitionColumns), appID)
	if err != nil {
		return nil, fmt.Errorf("failed to query SLO definitions: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			s.log.Warn("skipping unreadable SLO definition", zap.Error(err))
			continue
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SLO definitions: %w", err)
	}

	return &Report{
		DataSource:  "slo_definitions",
		Count:       len(defs),
		Definitions: defs,
	}, nil
}

// DefinitionForService returns the definition for one service, or nil when
// none is configured. Absence is a normal outcome, not an error.
func (s *Store) DefinitionForService(ctx context.Context, appID, serviceID int) (*Definition, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM slo_definitions WHERE application_id = $1 AND service_id = $2 ORDER BY updated_at DESC LIMIT 1`,
		definitionColumns), appID, serviceID)

	d, err := scanDefinition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query SLO definition: %w", err)
	}
	return &d, nil
}
