package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AggregateResult holds the combined profile objects gathered for a user.
type AggregateResult map[string]interface{}

// queryJSON runs a SQL statement that returns a single json value and
// unmarshals it.
func queryJSON(ctx context.Context, pool *pgxpool.Pool, sql string, args ...interface{}) (interface{}, error) {
	var raw []byte
	if err := pool.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProfileRepo reads the material the generation pipeline feeds to the AI:
// the stored profile document plus related collections. Reads are
// best-effort; a missing table just leaves its key out of the result.
type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// AggregateForUser collects profile, experiences, projects, publications
// and resume history for the given user.
func (r *ProfileRepo) AggregateForUser(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	res := AggregateResult{}
	id := userID.String()

	if v, err := queryJSON(ctx, r.pool, `SELECT coalesce(p.document, '{}') FROM profiles p WHERE p.user_id::text=$1 LIMIT 1`, id); err == nil {
		res["profile"] = v
	}
	if v, err := queryJSON(ctx, r.pool, `SELECT coalesce(json_agg(row_to_json(e)), '[]') FROM experiences e WHERE e.user_id::text=$1`, id); err == nil {
		res["experiences"] = v
	}
	if v, err := queryJSON(ctx, r.pool, `SELECT coalesce(json_agg(row_to_json(p)), '[]') FROM projects p WHERE p.user_id::text=$1`, id); err == nil {
		res["projects"] = v
	}
	if v, err := queryJSON(ctx, r.pool, `SELECT coalesce(json_agg(row_to_json(pub)), '[]') FROM publications pub WHERE pub.user_id::text=$1`, id); err == nil {
		res["publications"] = v
	}
	if v, err := queryJSON(ctx, r.pool, `SELECT coalesce(json_agg(row_to_json(r)), '[]') FROM resumes r WHERE r.user_id::text=$1`, id); err == nil {
		res["resumes"] = v
	}

	if len(res) == 0 {
		return nil, fmt.Errorf("no profile data for user %s", id)
	}
	return res, nil
}
