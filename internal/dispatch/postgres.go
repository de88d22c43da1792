package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/AnshRaj112/flags-survey-backend/internal/models"
)

// PostgresStore writes submissions into the responses table. Replays of the
// same submission id are ignored.
type PostgresStore struct {
	db         *sql.DB
	answerKeys []string
	insert     string
}

func NewPostgresStore(db *sql.DB, answerKeys []string) *PostgresStore {
	columns := []string{"submission_id", "created_at", "id", "flags", "platforms"}
	for _, key := range answerKeys {
		columns = append(columns, pq.QuoteIdentifier(key))
	}
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return &PostgresStore{
		db:         db,
		answerKeys: answerKeys,
		insert: fmt.Sprintf(
			`INSERT INTO responses (%s) VALUES (%s) ON CONFLICT (submission_id) DO NOTHING`,
			strings.Join(columns, ", "), strings.Join(placeholders, ", "),
		),
	}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Deliver(ctx context.Context, sub *models.Submission) error {
	answers := sub.AnswerMap()
	args := []any{sub.ID, sub.SubmittedAt, sub.Identifier(), sub.FlagsString(), pq.Array(sub.Platforms)}
	for _, key := range s.answerKeys {
		args = append(args, answers[key])
	}

	if _, err := s.db.ExecContext(ctx, s.insert, args...); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}
