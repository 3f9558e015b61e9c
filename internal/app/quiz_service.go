package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"engage-quiz/internal/domain"
	"github.com/google/uuid"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(attemptID string) (*Session, bool)
	Delete(attemptID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// LedgerRepository stores points balances. GetLedger reports false for users
// that have no ledger yet. Credit and Redeem are atomic per user, also across
// processes sharing the store; a missing ledger starts at opening. Both return
// the ledger before and after the change. Redeem returns the untouched ledger
// with domain.ErrInsufficientPoints when the balance does not cover the reward.
type LedgerRepository interface {
	GetLedger(ctx context.Context, userID string) (domain.Ledger, bool, error)
	Credit(ctx context.Context, userID string, opening, points int) (before, after domain.Ledger, err error)
	Redeem(ctx context.Context, userID string, opening int, reward domain.Reward) (before, after domain.Ledger, err error)
}

// RewardRepository serves the rewards catalog.
type RewardRepository interface {
	ListRewards(ctx context.Context) ([]domain.Reward, error)
	GetReward(ctx context.Context, rewardID string) (domain.Reward, error)
}

// Settings are the fallbacks applied to quizzes that leave them unset.
type Settings struct {
	DefaultTimeLimit int
	DefaultMaxPoints int
	InitialBalance   int
	// LedgerTimeout bounds the credit made while a session is locked. Defaults to 2s.
	LedgerTimeout time.Duration
}

// ServiceConfig wires a QuizService.
type ServiceConfig struct {
	Sessions  SessionRepository
	Quizzes   QuizRepository
	Ledgers   LedgerRepository
	Rewards   RewardRepository
	Scheduler *Scheduler
	Settings  Settings
	Logger    *slog.Logger

	// NewID and RewardCode default to uuid and REW-nnnn-nnnn codes.
	NewID      func() string
	RewardCode func() string
	Now        func() time.Time
}

// QuizService contains the quiz, points and reward use cases.
type QuizService struct {
	sessions  SessionRepository
	quizzes   QuizRepository
	ledgers   LedgerRepository
	rewards   RewardRepository
	scheduler *Scheduler
	settings  Settings
	logger    *slog.Logger
	newID     func() string
	code      func() string
	now       func() time.Time
}

func NewQuizService(cfg ServiceConfig) *QuizService {
	s := &QuizService{
		sessions:  cfg.Sessions,
		quizzes:   cfg.Quizzes,
		ledgers:   cfg.Ledgers,
		rewards:   cfg.Rewards,
		scheduler: cfg.Scheduler,
		settings:  cfg.Settings,
		logger:    cfg.Logger,
		newID:     cfg.NewID,
		code:      cfg.RewardCode,
		now:       cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.code == nil {
		s.code = newRewardCodeGenerator()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.settings.DefaultTimeLimit <= 0 {
		s.settings.DefaultTimeLimit = 60
	}
	if s.settings.LedgerTimeout <= 0 {
		s.settings.LedgerTimeout = 2 * time.Second
	}
	return s
}

// Quiz returns the public view of a quiz.
func (s *QuizService) Quiz(ctx context.Context, quizID string) (domain.PublicQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	quiz.TimeLimit, quiz.Points = s.limits(quiz)
	return quiz.Public(), nil
}

// Open creates a NotStarted attempt of quizID for userID.
func (s *QuizService) Open(ctx context.Context, quizID, userID string) (domain.Snapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	timeLimit, maxPoints := s.limits(quiz)

	session, err := NewSession(s.newID(), SessionConfig{
		QuizID:    quiz.ID,
		UserID:    userID,
		Questions: quiz.Questions,
		TimeLimit: timeLimit,
		MaxPoints: maxPoints,
		Now:       s.now,
		OnAward:   s.creditAward,
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("open quiz %s: %w", quizID, err)
	}
	s.sessions.Save(session)
	s.logger.Info("attempt opened", "attempt", session.ID(), "quiz", quiz.ID, "user", userID)
	return session.Snapshot(), nil
}

// Start begins the countdown of an opened attempt.
func (s *QuizService) Start(_ context.Context, attemptID string) (domain.Snapshot, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := session.Start()
	if err != nil {
		return snap, err
	}
	s.scheduler.Schedule(session)
	return snap, nil
}

// Answer records the selected option for the current question.
func (s *QuizService) Answer(_ context.Context, attemptID, value string) (domain.Snapshot, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.RecordAnswer(value)
}

// Next advances an answered question, finishing the attempt on the last one.
func (s *QuizService) Next(_ context.Context, attemptID string) (domain.Snapshot, bool, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, advanced, err := session.Next()
	s.stopIfDone(snap)
	return snap, advanced, err
}

// Submit finishes the attempt from its answered last question.
func (s *QuizService) Submit(_ context.Context, attemptID string) (domain.Snapshot, bool, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, done, err := session.Submit()
	s.stopIfDone(snap)
	return snap, done, err
}

// Tick advances the countdown by one step. It is used when no scheduler drives the attempt.
func (s *QuizService) Tick(_ context.Context, attemptID string) (domain.Snapshot, bool, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	snap, moved := session.Tick()
	s.stopIfDone(snap)
	return snap, moved, nil
}

// Reset stops the countdown and returns the attempt to NotStarted.
func (s *QuizService) Reset(_ context.Context, attemptID string) (domain.Snapshot, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	s.scheduler.Stop(attemptID)
	return session.Reset(), nil
}

// Snapshot returns the current state of an attempt.
func (s *QuizService) Snapshot(_ context.Context, attemptID string) (domain.Snapshot, error) {
	session, err := s.session(attemptID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives the attempt's events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, attemptID string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.session(attemptID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Abandon stops ticking and forgets the attempt.
func (s *QuizService) Abandon(_ context.Context, attemptID string) {
	s.scheduler.Stop(attemptID)
	s.sessions.Delete(attemptID)
	s.logger.Debug("attempt abandoned", "attempt", attemptID)
}

// Balance returns the user's ledger, opening it with the initial balance if needed.
func (s *QuizService) Balance(ctx context.Context, userID string) (domain.Ledger, error) {
	ledger, ok, err := s.ledgers.GetLedger(ctx, userID)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	if !ok {
		ledger = domain.Ledger{UserID: userID, Balance: s.settings.InitialBalance}
	}
	return ledger, nil
}

// Rewards lists the rewards catalog.
func (s *QuizService) Rewards(ctx context.Context) ([]domain.Reward, error) {
	return s.rewards.ListRewards(ctx)
}

// Redeem debits the reward cost from the user's ledger and issues a receipt.
func (s *QuizService) Redeem(ctx context.Context, userID string, req domain.RedemptionRequest) (domain.Redemption, domain.Ledger, error) {
	if err := req.Validate(); err != nil {
		return domain.Redemption{}, domain.Ledger{}, err
	}
	reward, err := s.rewards.GetReward(ctx, req.RewardID)
	if err != nil {
		return domain.Redemption{}, domain.Ledger{}, err
	}

	before, updated, err := s.ledgers.Redeem(ctx, userID, s.settings.InitialBalance, reward)
	if errors.Is(err, domain.ErrInsufficientPoints) {
		return domain.Redemption{}, before, err
	}
	if err != nil {
		return domain.Redemption{}, before, fmt.Errorf("redeem reward %s: %w", reward.ID, err)
	}

	receipt := domain.Redemption{
		RewardID:   reward.ID,
		Title:      reward.Title,
		Points:     reward.Points,
		Method:     req.Method,
		Code:       s.code(),
		RedeemedAt: s.now(),
	}
	if req.Method == domain.RedeemUSSD {
		receipt.Recipient = req.Phone
	}
	s.logger.Info("reward redeemed", "user", userID, "reward", reward.ID, "method", req.Method, "balance", updated.Balance)
	return receipt, updated, nil
}

func (s *QuizService) creditAward(snap domain.Snapshot, award domain.PointsAward) (domain.BalanceChange, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.LedgerTimeout)
	defer cancel()

	before, after, err := s.ledgers.Credit(ctx, snap.UserID, s.settings.InitialBalance, award.Points)
	if err != nil {
		s.logger.Error("credit points", "attempt", snap.AttemptID, "user", snap.UserID, "points", award.Points, "err", err)
		return domain.BalanceChange{}, err
	}
	s.logger.Info("points earned",
		"attempt", snap.AttemptID,
		"user", snap.UserID,
		"score", award.Score,
		"total", award.Total,
		"points", award.Points,
		"balance", after.Balance,
	)
	return domain.BalanceChange{Previous: before.Balance, Balance: after.Balance}, nil
}

func (s *QuizService) session(attemptID string) (*Session, error) {
	session, ok := s.sessions.Get(attemptID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *QuizService) stopIfDone(snap domain.Snapshot) {
	if snap.Status == domain.StatusCompleted {
		s.scheduler.Stop(snap.AttemptID)
	}
}

func (s *QuizService) limits(quiz domain.Quiz) (int, int) {
	timeLimit := quiz.TimeLimit
	if timeLimit == 0 {
		timeLimit = s.settings.DefaultTimeLimit
	}
	maxPoints := quiz.Points
	if maxPoints == 0 {
		maxPoints = s.settings.DefaultMaxPoints
	}
	return timeLimit, maxPoints
}

// IsClientError reports whether err is caused by the caller rather than the backend.
func IsClientError(err error) bool {
	for _, target := range []error{
		domain.ErrSessionNotFound,
		domain.ErrSessionNotStarted,
		domain.ErrSessionAlreadyStarted,
		domain.ErrSessionCompleted,
		domain.ErrNotLastQuestion,
		domain.ErrQuizNotFound,
		domain.ErrInvalidQuiz,
		domain.ErrOptionNotFound,
		domain.ErrRewardNotFound,
		domain.ErrInsufficientPoints,
		domain.ErrInvalidRedemptionMethod,
		domain.ErrPhoneRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func newRewardCodeGenerator() func() string {
	var mu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Sprintf("REW-%d-%d", rnd.Intn(10000), rnd.Intn(10000))
	}
}
