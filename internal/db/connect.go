package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:ltitool.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/ltitool?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS platforms (
  platform_url   TEXT NOT NULL,                -- issuer of the platform
  client_id      TEXT NOT NULL,                -- client_id issued to this tool
  name           TEXT NOT NULL,                -- platform product_family_code
  tool_name      TEXT NOT NULL,                -- operator-supplied label
  auth_endpoint  TEXT NOT NULL,
  token_endpoint TEXT NOT NULL,
  auth_method    TEXT NOT NULL,                -- "JWK_SET"
  auth_key       TEXT NOT NULL,                -- platform JWKS URL
  kid            TEXT NOT NULL,
  created_at     INTEGER NOT NULL,
  PRIMARY KEY (platform_url, client_id)
);

CREATE TABLE IF NOT EXISTS tool_keys (
  kid             TEXT PRIMARY KEY,
  alg             TEXT NOT NULL,
  public_jwk      TEXT NOT NULL,               -- public part, JSON
  private_key_enc TEXT NOT NULL,               -- encrypted PKCS#8, base64
  created_at      INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS platforms (
  platform_url   TEXT NOT NULL,
  client_id      TEXT NOT NULL,
  name           TEXT NOT NULL,
  tool_name      TEXT NOT NULL,
  auth_endpoint  TEXT NOT NULL,
  token_endpoint TEXT NOT NULL,
  auth_method    TEXT NOT NULL,
  auth_key       TEXT NOT NULL,
  kid            TEXT NOT NULL,
  created_at     BIGINT NOT NULL,
  PRIMARY KEY (platform_url, client_id)
);

CREATE TABLE IF NOT EXISTS tool_keys (
  kid             TEXT PRIMARY KEY,
  alg             TEXT NOT NULL,
  public_jwk      JSONB NOT NULL,
  private_key_enc TEXT NOT NULL,
  created_at      BIGINT NOT NULL
);
`
