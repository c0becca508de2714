package schema

import _ "embed"

// Postgres creates and seeds the Postgres tables. It is idempotent.
//
//go:embed postgres.sql
var Postgres string

// SQLite creates and seeds the SQLite tables. It is idempotent.
//
//go:embed sqlite.sql
var SQLite string
