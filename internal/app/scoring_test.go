package app_test

import (
	"testing"

	"engage-quiz/internal/app"
	"engage-quiz/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	questions := makeQuestions(4, "b")

	testCases := []struct {
		name    string
		answers []string
		want    int
	}{
		{name: "all unanswered", answers: []string{"", "", "", ""}, want: 0},
		{name: "all correct", answers: []string{"b", "b", "b", "b"}, want: 4},
		{name: "mixed", answers: []string{"b", "a", "", "b"}, want: 2},
		{name: "unknown tokens never match", answers: []string{"x", "y", "b", "z"}, want: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, app.ComputeScore(questions, tc.answers))
			assert.Equal(t, tc.want, app.ComputeScore(questions, tc.answers), "pure: same input, same score")
		})
	}
}

func TestComputeScore_EmptyCorrectOptionNeverMatchesUnanswered(t *testing.T) {
	questions := []domain.Question{{Prompt: "?", Options: []domain.Option{{Value: "a"}}, CorrectOption: ""}}
	assert.Equal(t, 0, app.ComputeScore(questions, []string{domain.Unanswered}))
}

func TestDerivePoints(t *testing.T) {
	testCases := []struct {
		name       string
		score      int
		total      int
		maxPoints  int
		wantPoints int
		wantEarned bool
	}{
		{name: "perfect", score: 5, total: 5, maxPoints: 100, wantPoints: 100, wantEarned: true},
		{name: "half is enough", score: 4, total: 8, maxPoints: 80, wantPoints: 40, wantEarned: true},
		{name: "below half", score: 3, total: 8, maxPoints: 80, wantPoints: 30, wantEarned: false},
		{name: "zero", score: 0, total: 8, maxPoints: 80, wantPoints: 0, wantEarned: false},
		{name: "odd total rounds half up", score: 1, total: 2, maxPoints: 5, wantPoints: 3, wantEarned: true},
		{name: "real division threshold", score: 2, total: 5, maxPoints: 100, wantPoints: 40, wantEarned: false},
		{name: "rounding", score: 2, total: 3, maxPoints: 100, wantPoints: 67, wantEarned: true},
		{name: "no questions", score: 0, total: 0, maxPoints: 100, wantPoints: 0, wantEarned: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			award := app.DerivePoints(tc.score, tc.total, tc.maxPoints)
			assert.Equal(t, tc.wantPoints, award.Points)
			assert.Equal(t, tc.wantEarned, award.Earned)
			assert.Equal(t, tc.score, award.Score)
			assert.Equal(t, tc.total, award.Total)
		})
	}
}
