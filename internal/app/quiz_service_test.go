package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"engage-quiz/internal/app"
	"engage-quiz/internal/domain"
	"engage-quiz/internal/infra/memory"
)

func TestOpenPlayAndCreditPoints(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	snap, err := service.Open(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if snap.AttemptID != "attempt-1" || snap.Status != domain.StatusNotStarted {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	events, cancel, err := service.Subscribe(ctx, snap.AttemptID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()
	<-events // initial snapshot

	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, value := range []string{"b", "a"} {
		if _, err := service.Answer(ctx, snap.AttemptID, value); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
		if _, advanced, err := service.Next(ctx, snap.AttemptID); err != nil || !advanced {
			t.Fatalf("next failed: advanced=%v err=%v", advanced, err)
		}
	}

	final, err := service.Snapshot(ctx, snap.AttemptID)
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if final.Status != domain.StatusCompleted || final.Score == nil || *final.Score != 1 {
		t.Fatalf("expected completed with score 1, got %+v", final)
	}

	ledger, err := service.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	// 1 of 2 correct: round(0.5 * 20) = 10 on top of the initial 100.
	if ledger.Balance != 110 {
		t.Fatalf("expected balance 110, got %d", ledger.Balance)
	}

	var earned *domain.SessionEvent
	for len(events) > 0 {
		ev := <-events
		if ev.Type == domain.EventPointsEarned {
			earned = &ev
		}
	}
	if earned == nil || earned.Award.Points != 10 {
		t.Fatalf("expected pointsEarned event with 10 points, got %+v", earned)
	}
	if earned.Balance == nil || earned.Balance.Previous != 100 || earned.Balance.Balance != 110 {
		t.Fatalf("expected balance change 100 -> 110, got %+v", earned.Balance)
	}
}

type failingLedger struct {
	*memory.LedgerStore
}

func (failingLedger) Credit(context.Context, string, int, int) (domain.Ledger, domain.Ledger, error) {
	return domain.Ledger{}, domain.Ledger{}, errors.New("redis down")
}

func TestFailedCreditPublishesNoPointsEarned(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestServiceWithLedger(nil, failingLedger{memory.NewLedgerStore()})

	snap, err := service.Open(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	events, cancel, err := service.Subscribe(ctx, snap.AttemptID)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	for _, value := range []string{"b", "b"} {
		if _, err := service.Answer(ctx, snap.AttemptID, value); err != nil {
			t.Fatalf("answer failed: %v", err)
		}
		if _, _, err := service.Next(ctx, snap.AttemptID); err != nil {
			t.Fatalf("next failed: %v", err)
		}
	}

	final, _ := service.Snapshot(ctx, snap.AttemptID)
	if final.Status != domain.StatusCompleted {
		t.Fatalf("expected completed attempt, got %+v", final)
	}
	for len(events) > 0 {
		if ev := <-events; ev.Type == domain.EventPointsEarned {
			t.Fatalf("unexpected pointsEarned after failed credit: %+v", ev)
		}
	}
	ledger, err := service.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if ledger.Balance != 100 {
		t.Fatalf("expected untouched balance 100, got %d", ledger.Balance)
	}
}

func TestNoPointsBelowHalf(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	snap, err := service.Open(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	// Let both questions time out.
	for i := 0; i < 2*30; i++ {
		if _, _, err := service.Tick(ctx, snap.AttemptID); err != nil {
			t.Fatalf("tick failed: %v", err)
		}
	}

	final, _ := service.Snapshot(ctx, snap.AttemptID)
	if final.Status != domain.StatusCompleted || *final.Score != 0 {
		t.Fatalf("expected completed with score 0, got %+v", final)
	}
	ledger, _ := service.Balance(ctx, "u1")
	if ledger.Balance != 100 {
		t.Fatalf("expected untouched balance 100, got %d", ledger.Balance)
	}
}

func TestUnknownAttemptAndQuiz(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	if _, err := service.Open(ctx, "quiz-unknown", "u1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz error, got %v", err)
	}
	if _, err := service.Start(ctx, "nope"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.Answer(ctx, "nope", "a"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.Subscribe(ctx, "nope"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestAbandonForgetsAttempt(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService(nil)

	snap, _ := service.Open(ctx, "quiz-1", "u1")
	_, _ = service.Start(ctx, snap.AttemptID)
	service.Abandon(ctx, snap.AttemptID)

	if store.Len() != 0 {
		t.Fatalf("expected no live attempts, got %d", store.Len())
	}
	if _, err := service.Snapshot(ctx, snap.AttemptID); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
}

func TestResetAllowsReplay(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	snap, _ := service.Open(ctx, "quiz-1", "u1")
	_, _ = service.Start(ctx, snap.AttemptID)
	_, _ = service.Answer(ctx, snap.AttemptID, "b")

	reset, err := service.Reset(ctx, snap.AttemptID)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if reset.Status != domain.StatusNotStarted || reset.Answers[0] != domain.Unanswered {
		t.Fatalf("expected fresh attempt, got %+v", reset)
	}
	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
}

func TestSchedulerDrivesTimeouts(t *testing.T) {
	ctx := context.Background()
	scheduler := app.NewScheduler(time.Millisecond, nil)
	defer scheduler.Close()
	service, _ := newTestService(scheduler)

	snap, _ := service.Open(ctx, "quiz-1", "u1")
	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		current, _ := service.Snapshot(ctx, snap.AttemptID)
		if current.Status == domain.StatusCompleted {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("scheduler never completed the attempt: %+v", current)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRedeemRewards(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	receipt, ledger, err := service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "cheap", Method: domain.RedeemWeb})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if receipt.Code != "REW-1-2" || ledger.Balance != 50 {
		t.Fatalf("unexpected receipt %+v ledger %+v", receipt, ledger)
	}

	receipt, ledger, err = service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "cheap", Method: domain.RedeemUSSD, Phone: "0712345678"})
	if err != nil {
		t.Fatalf("ussd redeem failed: %v", err)
	}
	if receipt.Recipient != "0712345678" || ledger.Balance != 0 {
		t.Fatalf("unexpected receipt %+v ledger %+v", receipt, ledger)
	}

	_, _, err = service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "cheap", Method: domain.RedeemWeb})
	if !errors.Is(err, domain.ErrInsufficientPoints) {
		t.Fatalf("expected insufficient points, got %v", err)
	}
	_, _, err = service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "cheap", Method: domain.RedeemUSSD})
	if !errors.Is(err, domain.ErrPhoneRequired) {
		t.Fatalf("expected phone required, got %v", err)
	}
	_, _, err = service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "cheap", Method: "fax"})
	if !errors.Is(err, domain.ErrInvalidRedemptionMethod) {
		t.Fatalf("expected invalid method, got %v", err)
	}
	_, _, err = service.Redeem(ctx, "u1", domain.RedemptionRequest{RewardID: "gone", Method: domain.RedeemWeb})
	if !errors.Is(err, domain.ErrRewardNotFound) {
		t.Fatalf("expected reward not found, got %v", err)
	}
}

func TestPublicQuizHidesAnswers(t *testing.T) {
	service, _ := newTestService(nil)

	quiz, err := service.Quiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("quiz failed: %v", err)
	}
	if len(quiz.Questions) != 2 || quiz.TimeLimit != 30 || quiz.Points != 20 {
		t.Fatalf("unexpected public quiz %+v", quiz)
	}
}

type stalledLedger struct {
	*memory.LedgerStore
}

func (stalledLedger) Credit(ctx context.Context, _ string, _, _ int) (domain.Ledger, domain.Ledger, error) {
	<-ctx.Done()
	return domain.Ledger{}, domain.Ledger{}, ctx.Err()
}

func TestStalledLedgerDoesNotFreezeAttempt(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestServiceWithLedger(nil, stalledLedger{memory.NewLedgerStore()}, func(s *app.Settings) {
		s.LedgerTimeout = 20 * time.Millisecond
	})

	snap, _ := service.Open(ctx, "quiz-1", "u1")
	if _, err := service.Start(ctx, snap.AttemptID); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, _ = service.Answer(ctx, snap.AttemptID, "b")
	_, _, _ = service.Next(ctx, snap.AttemptID)
	_, _ = service.Answer(ctx, snap.AttemptID, "b")

	done := make(chan domain.Snapshot, 1)
	go func() {
		final, _, _ := service.Submit(ctx, snap.AttemptID)
		done <- final
	}()
	select {
	case final := <-done:
		if final.Status != domain.StatusCompleted {
			t.Fatalf("expected completed attempt, got %+v", final)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("submit blocked on a stalled ledger")
	}
}

func newTestService(scheduler *app.Scheduler) (*app.QuizService, *memory.SessionStore) {
	return newTestServiceWithLedger(scheduler, memory.NewLedgerStore())
}

func newTestServiceWithLedger(scheduler *app.Scheduler, ledgers app.LedgerRepository, tweaks ...func(*app.Settings)) (*app.QuizService, *memory.SessionStore) {
	sessionStore := memory.NewSessionStore()
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Two questions",
			TimeLimit: 30,
			Points:    20,
			Questions: []domain.Question{
				{
					Prompt: "Select the right option",
					Options: []domain.Option{
						{Value: "a", Label: "Wrong"},
						{Value: "b", Label: "Right"},
					},
					CorrectOption: "b",
				},
				{
					Prompt: "Select the right option again",
					Options: []domain.Option{
						{Value: "a", Label: "Wrong"},
						{Value: "b", Label: "Right"},
					},
					CorrectOption: "b",
				},
			},
		},
	}), 5*time.Minute)

	settings := app.Settings{InitialBalance: 100}
	for _, tweak := range tweaks {
		tweak(&settings)
	}

	ids := 0
	service := app.NewQuizService(app.ServiceConfig{
		Sessions:  sessionStore,
		Quizzes:   quizRepo,
		Ledgers:   ledgers,
		Rewards:   memory.NewRewardCatalog([]domain.Reward{{ID: "cheap", Title: "Sticker", Points: 50}}),
		Scheduler: scheduler,
		Settings:  settings,
		NewID: func() string {
			ids++
			return "attempt-" + string(rune('0'+ids))
		},
		RewardCode: func() string { return "REW-1-2" },
	})
	return service, sessionStore
}
