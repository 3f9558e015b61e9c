package cli

import (
	"engage-quiz/internal/domain"
	"engage-quiz/internal/infra/memory"
	pgloader "engage-quiz/internal/infra/postgres"
	"engage-quiz/internal/infra/sqlite"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the sample quizzes into the configured catalog.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample quizzes into Postgres or SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			quizzes := sampleQuizList()

			if cfg.Postgres.URL != "" {
				if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
					return err
				}
				db, err := openBun(cfg)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := pgloader.SeedQuizzes(ctx, db, quizzes); err != nil {
					return err
				}
				logger.Info("seeded quizzes", "target", "postgres", "count", len(quizzes))
				return nil
			}
			if cfg.SQLite.Path != "" {
				loader, err := sqlite.Open(ctx, cfg.SQLite.Path)
				if err != nil {
					return err
				}
				defer loader.Close()
				if err := loader.SaveQuizzes(ctx, quizzes); err != nil {
					return err
				}
				logger.Info("seeded quizzes", "target", "sqlite", "path", cfg.SQLite.Path, "count", len(quizzes))
				return nil
			}
			return errNoCatalog
		},
	}
}

func sampleQuizList() []domain.Quiz {
	samples := memory.SampleQuizzes()
	loader := memory.NewStaticQuizLoader(samples)
	quizzes := make([]domain.Quiz, 0, len(samples))
	for _, id := range loader.QuizIDs() {
		quizzes = append(quizzes, samples[id])
	}
	return quizzes
}
