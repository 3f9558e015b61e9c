package app

import (
	"math"

	"engage-quiz/internal/domain"
)

// ComputeScore counts answers that exactly match the correct option of the
// question at the same index. Unanswered slots never match.
func ComputeScore(questions []domain.Question, answers []string) int {
	n := len(questions)
	if len(answers) < n {
		n = len(answers)
	}
	score := 0
	for i := 0; i < n; i++ {
		if answers[i] != domain.Unanswered && answers[i] == questions[i].CorrectOption {
			score++
		}
	}
	return score
}

// DerivePoints converts a score into points: round(score/total*maxPoints).
// The award is marked earned when at least half of the questions are correct.
func DerivePoints(score, total, maxPoints int) domain.PointsAward {
	award := domain.PointsAward{Score: score, Total: total}
	if total <= 0 {
		return award
	}
	ratio := float64(score) / float64(total)
	award.Points = int(math.Round(ratio * float64(maxPoints)))
	award.Earned = float64(score) >= float64(total)/2
	return award
}
