package redis

import (
	"testing"
	"time"

	"engage-quiz/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession("attempt-1", app.SessionConfig{
		QuizID:    "quiz-1",
		Questions: sampleQuiz().Questions,
		TimeLimit: 30,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Save(session)
	if got, _ := mr.Get("quiz:attempt:attempt-1"); got != "quiz-1" {
		t.Fatalf("expected liveness marker with quiz id, got %q", got)
	}
	if _, ok := store.Get("attempt-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("attempt-1")
	if mr.Exists("quiz:attempt:attempt-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("attempt-1"); ok {
		t.Fatalf("expected session removed")
	}
}
