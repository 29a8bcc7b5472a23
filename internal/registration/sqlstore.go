package registration

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLPlatformStore persists platform records in the platforms table
// (sqlite or postgres; see internal/db). Put relies on the primary key
// (platform_url, client_id) with ON CONFLICT DO NOTHING, so the duplicate
// check is atomic at the database rather than check-then-act.
type SQLPlatformStore struct {
	DB *sql.DB
}

func (s *SQLPlatformStore) Exists(ctx context.Context, platformURL, clientID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM platforms WHERE platform_url=$1 AND client_id=$2`,
		platformURL, clientID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLPlatformStore) Put(ctx context.Context, rec PlatformRecord) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO platforms
		  (platform_url, client_id, name, tool_name, auth_endpoint, token_endpoint, auth_method, auth_key, kid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (platform_url, client_id) DO NOTHING`,
		rec.PlatformURL, rec.ClientID, rec.Name, rec.ToolName,
		rec.AuthenticationEndpoint, rec.AccessTokenEndpoint,
		rec.AuthConfig.Method, rec.AuthConfig.Key, rec.KID, rec.CreatedAt.Unix())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *SQLPlatformStore) Get(ctx context.Context, platformURL, clientID string) (PlatformRecord, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT platform_url, client_id, name, tool_name, auth_endpoint, token_endpoint, auth_method, auth_key, kid, created_at
		FROM platforms WHERE platform_url=$1 AND client_id=$2`,
		platformURL, clientID)
	rec, err := scanPlatform(row)
	if errors.Is(err, sql.ErrNoRows) {
		return PlatformRecord{}, ErrPlatformNotFound
	}
	return rec, err
}

func (s *SQLPlatformStore) List(ctx context.Context, offset, limit int) ([]PlatformRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT platform_url, client_id, name, tool_name, auth_endpoint, token_endpoint, auth_method, auth_key, kid, created_at
		FROM platforms ORDER BY platform_url, client_id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PlatformRecord{}
	for rows.Next() {
		rec, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlatform(row rowScanner) (PlatformRecord, error) {
	var rec PlatformRecord
	var createdAt int64
	err := row.Scan(&rec.PlatformURL, &rec.ClientID, &rec.Name, &rec.ToolName,
		&rec.AuthenticationEndpoint, &rec.AccessTokenEndpoint,
		&rec.AuthConfig.Method, &rec.AuthConfig.Key, &rec.KID, &createdAt)
	if err != nil {
		return PlatformRecord{}, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return rec, nil
}
