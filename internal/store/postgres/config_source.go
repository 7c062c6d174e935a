package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/replane-dev/replane-sub002/internal/domain"
)

// GetConfigAggregateIDs lists every config id across every project;
// replicas are never partial (Non-goal).
func (a *Adapter) GetConfigAggregateIDs(ctx context.Context) ([]string, error) {
	rows, err := a.pool.Query(ctx, `SELECT id FROM configs`)
	if err != nil {
		return nil, fmt.Errorf("listing config ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning config id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetConfigAggregatesByIDs resolves a batch of config ids to full
// aggregates (config row + its variants) in two queries.
func (a *Adapter) GetConfigAggregatesByIDs(ctx context.Context, ids []string) ([]domain.ConfigAggregate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	configRows, err := a.pool.Query(ctx, `
		SELECT id, project_id, name, version, value, schema, overrides, created_at, updated_at
		FROM configs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying configs: %w", err)
	}

	aggregates := make(map[string]*domain.ConfigAggregate)
	for configRows.Next() {
		var c domain.Config
		var rawOverrides []byte
		if err := configRows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Version, &c.BaseValue, &c.BaseSchema, &rawOverrides, &c.CreatedAt, &c.UpdatedAt); err != nil {
			configRows.Close()
			return nil, fmt.Errorf("scanning config: %w", err)
		}
		if err := json.Unmarshal(rawOverrides, &c.BaseOverrides); err != nil {
			configRows.Close()
			return nil, fmt.Errorf("decoding overrides for config %s: %w", c.ID, err)
		}
		aggregates[c.ID] = &domain.ConfigAggregate{Config: c, Variants: map[string]domain.ConfigVariant{}}
	}
	configRows.Close()
	if err := configRows.Err(); err != nil {
		return nil, err
	}

	variantRows, err := a.pool.Query(ctx, `
		SELECT id, config_id, environment_id, value, schema, overrides, use_base_schema
		FROM config_variants WHERE config_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying config variants: %w", err)
	}
	defer variantRows.Close()

	for variantRows.Next() {
		var v domain.ConfigVariant
		var rawOverrides []byte
		if err := variantRows.Scan(&v.ID, &v.ConfigID, &v.EnvironmentID, &v.Value, &v.Schema, &rawOverrides, &v.UseBaseSchema); err != nil {
			return nil, fmt.Errorf("scanning config variant: %w", err)
		}
		if err := json.Unmarshal(rawOverrides, &v.Overrides); err != nil {
			return nil, fmt.Errorf("decoding overrides for variant %s: %w", v.ID, err)
		}
		if agg, ok := aggregates[v.ConfigID]; ok {
			agg.Variants[v.EnvironmentID] = v
		}
	}
	if err := variantRows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.ConfigAggregate, 0, len(aggregates))
	for _, agg := range aggregates {
		out = append(out, *agg)
	}
	return out, nil
}
