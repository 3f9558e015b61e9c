package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"engage-quiz/internal/domain"
	"github.com/uptrace/bun"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID        string    `bun:"id,pk"`
	Data      string    `bun:"data,type:jsonb"`
	UpdatedAt time.Time `bun:"updated_at"`
}

// SeedQuizzes upserts quizzes into the catalog table.
func SeedQuizzes(ctx context.Context, db bun.IDB, quizzes []domain.Quiz) error {
	if len(quizzes) == 0 {
		return nil
	}
	rows := make([]quizRow, 0, len(quizzes))
	now := time.Now().UTC()
	for _, quiz := range quizzes {
		if err := domain.ValidateQuestions(quiz.Questions); err != nil {
			return fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
		}
		data, err := json.Marshal(quiz)
		if err != nil {
			return fmt.Errorf("marshal quiz %s: %w", quiz.ID, err)
		}
		rows = append(rows, quizRow{ID: quiz.ID, Data: string(data), UpdatedAt: now})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed quizzes: %w", err)
	}
	return nil
}
