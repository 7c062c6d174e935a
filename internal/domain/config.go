// Package domain holds the types shared by the replica store, the
// override evaluator, the reference resolver, and the durable store
// adapter: configs, environments, overrides, conditions, and values.
package domain

import (
	"encoding/json"
	"time"
)

// Project scopes configs and environments. The core only consumes it
// as a scoping key; creation/deletion is handled by the out-of-scope
// admin surface.
type Project struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Environment is a named tier within a project, e.g. "Production".
type Environment struct {
	ID        string `json:"id" db:"id"`
	ProjectID string `json:"projectId" db:"project_id"`
	Name      string `json:"name" db:"name"`
	Order     int    `json:"order" db:"order"`
}

// Config is an authored document: a base value, an optional schema,
// and an ordered list of conditional overrides. Name is unique per
// project; Version is strictly monotonic per ConfigID and advances on
// any change to the config row or any of its variants.
type Config struct {
	ID            string          `db:"id"`
	ProjectID     string          `db:"project_id"`
	Name          string          `db:"name"`
	Version       int64           `db:"version"`
	BaseValue     json.RawMessage `db:"value"`
	BaseSchema    json.RawMessage `db:"schema"`
	BaseOverrides []Override      `db:"overrides"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

// ConfigVariant is a per-environment overlay of a config's value,
// schema, and overrides. UseBaseSchema, when true, means Schema is
// ignored in favor of the owning config's BaseSchema.
type ConfigVariant struct {
	ID            string          `db:"id"`
	ConfigID      string          `db:"config_id"`
	EnvironmentID string          `db:"environment_id"`
	Value         json.RawMessage `db:"value"`
	Schema        json.RawMessage `db:"schema"`
	Overrides     []Override      `db:"overrides"`
	UseBaseSchema bool            `db:"use_base_schema"`
}

// EnvironmentalConfig is the result of resolving a config against a
// specific environment: the variant's value/overrides/schema if a
// variant exists for that environment, otherwise the config's base.
type EnvironmentalConfig struct {
	Name          string
	Version       int64
	EnvironmentID string
	Value         json.RawMessage
	Schema        json.RawMessage
	Overrides     []Override
}
