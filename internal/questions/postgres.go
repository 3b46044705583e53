package questions

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo reads the question catalog straight from the questions
// database. Used when the matching service is deployed next to the
// questions store instead of behind the question service's HTTP API.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repository over an open database handle.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// List returns every question in the catalog.
func (r *PostgresRepo) List(ctx context.Context) ([]Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT question_id, title, complexity FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var list []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Complexity); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		list = append(list, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate question rows: %w", err)
	}

	return list, nil
}
