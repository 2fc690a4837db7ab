package rating

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	createRatingsTableQuery = `
		CREATE TABLE IF NOT EXISTS ratings (
			reviewer_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			rating DOUBLE PRECISION NOT NULL
		)
	`
	createRatingsIndexQuery = `CREATE INDEX IF NOT EXISTS ratings_reviewer_idx ON ratings (reviewer_id)`
	listRatingsQuery        = `SELECT reviewer_id, product_id, rating FROM ratings ORDER BY reviewer_id, product_id`
	ratingsByReviewerQuery  = `SELECT reviewer_id, product_id, rating FROM ratings WHERE reviewer_id = $1 ORDER BY product_id`
	reviewerIDsQuery        = `SELECT DISTINCT reviewer_id FROM ratings WHERE reviewer_id LIKE $1 ORDER BY reviewer_id LIMIT $2`
	insertRatingsQuery      = `
		INSERT INTO ratings (reviewer_id, product_id, rating)
		SELECT * FROM unnest($1::text[], $2::text[], $3::float8[])
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the ratings table and its reviewer index when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRatingsTableQuery); err != nil {
		return fmt.Errorf("create ratings table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createRatingsIndexQuery); err != nil {
		return fmt.Errorf("create ratings index: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Rating, error) {
	return r.query(ctx, listRatingsQuery)
}

func (r *PostgresRepository) ByReviewer(ctx context.Context, reviewerID string) ([]Rating, error) {
	return r.query(ctx, ratingsByReviewerQuery, reviewerID)
}

// ReviewerIDs treats limit <= 0 as no limit; LIMIT NULL returns every row.
func (r *PostgresRepository) ReviewerIDs(ctx context.Context, prefix string, limit int) ([]string, error) {
	lim := sql.NullInt64{Int64: int64(limit), Valid: limit > 0}
	rows, err := r.db.QueryContext(ctx, reviewerIDsQuery, escapeLike(prefix)+"%", lim)
	if err != nil {
		return nil, fmt.Errorf("query reviewer ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reviewer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) InsertMany(ctx context.Context, ratings []Rating) (int, error) {
	if len(ratings) == 0 {
		return 0, nil
	}

	reviewers := make([]string, len(ratings))
	products := make([]string, len(ratings))
	values := make([]float64, len(ratings))
	for i, rt := range ratings {
		reviewers[i] = rt.ReviewerID
		products[i] = rt.ProductID
		values[i] = rt.Value
	}

	res, err := r.db.ExecContext(ctx, insertRatingsQuery, pq.Array(reviewers), pq.Array(products), pq.Array(values))
	if err != nil {
		return 0, fmt.Errorf("insert ratings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(ratings), nil
	}
	return int(n), nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]Rating, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer rows.Close()

	out := make([]Rating, 0)
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(&rt.ReviewerID, &rt.ProductID, &rt.Value); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE wildcards so a typed prefix matches literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
