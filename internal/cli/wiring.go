package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"engage-quiz/internal/app"
	"engage-quiz/internal/config"
	"engage-quiz/internal/infra/memory"
	pgloader "engage-quiz/internal/infra/postgres"
	infraredis "engage-quiz/internal/infra/redis"
	"engage-quiz/internal/infra/sqlite"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend is the set of stores a QuizService runs on, plus their cleanup.
type backend struct {
	service   *app.QuizService
	scheduler *app.Scheduler
	closers   []func()
}

func (b *backend) Close() {
	b.scheduler.Close()
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// newBackend picks the quiz source (Postgres, then SQLite, then the built-in
// samples) and puts Redis in front of it when an address is configured.
func newBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}

	loader, err := b.quizLoader(ctx, cfg, logger)
	if err != nil {
		b.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			b.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		logger.Info("redis enabled", "addr", cfg.Redis.Addr)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		quizRepo app.QuizRepository
		sessions app.SessionRepository
		ledgers  app.LedgerRepository
	)
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		sessions = infraredis.NewSessionStore(redisClient, redisTTL)
		ledgers = infraredis.NewLedgerStore(redisClient)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		sessions = memory.NewSessionStore()
		ledgers = memory.NewLedgerStore()
	}

	b.scheduler = app.NewScheduler(config.TTLDuration(cfg.Quiz.TickInterval, time.Second), logger)
	b.service = app.NewQuizService(app.ServiceConfig{
		Sessions:  sessions,
		Quizzes:   quizRepo,
		Ledgers:   ledgers,
		Rewards:   memory.NewRewardCatalog(memory.SampleRewards()),
		Scheduler: b.scheduler,
		Settings: app.Settings{
			DefaultTimeLimit: cfg.Quiz.TimeLimit,
			DefaultMaxPoints: cfg.Quiz.MaxPoints,
			InitialBalance:   cfg.Points.InitialBalance,
		},
		Logger: logger,
	})
	return b, nil
}

func (b *backend) quizLoader(ctx context.Context, cfg config.Config, logger *slog.Logger) (memory.QuizLoader, error) {
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		logger.Info("quiz catalog", "source", "postgres")
		return pgloader.NewQuizLoader(pool), nil
	case cfg.SQLite.Path != "":
		loader, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = loader.Close() })
		logger.Info("quiz catalog", "source", "sqlite", "path", cfg.SQLite.Path)
		return loader, nil
	default:
		logger.Info("quiz catalog", "source", "samples")
		return memory.NewStaticQuizLoader(memory.SampleQuizzes()), nil
	}
}
