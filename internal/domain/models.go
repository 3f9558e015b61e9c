package domain

import (
	"fmt"
	"time"
)

// Unanswered marks an answer slot with no selected option.
const Unanswered = ""

// Option represents a selectable choice for a question.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []Option `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

// HasOption reports whether value is one of the question's option values.
func (q Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// Label returns the display label for value, or "" when value is not an option.
func (q Question) Label(value string) string {
	for _, opt := range q.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return ""
}

// Quiz is a collection of questions plus catalog metadata.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Sponsor     string     `json:"sponsor,omitempty"`
	Prize       string     `json:"prize,omitempty"`
	TimeLimit   int        `json:"timeLimit"` // seconds per question
	Points      int        `json:"points"`    // awarded for a perfect score
	Questions   []Question `json:"questions"`
}

// ValidateQuestions rejects quiz content the session controller cannot run.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidQuiz)
	}
	for i, q := range questions {
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: question %d has no options", ErrInvalidQuiz, i)
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if opt.Value == Unanswered {
				return fmt.Errorf("%w: question %d has an option with an empty value", ErrInvalidQuiz, i)
			}
			if _, dup := seen[opt.Value]; dup {
				return fmt.Errorf("%w: question %d repeats option %q", ErrInvalidQuiz, i, opt.Value)
			}
			seen[opt.Value] = struct{}{}
		}
		if _, ok := seen[q.CorrectOption]; !ok {
			return fmt.Errorf("%w: question %d correct option %q is not an option", ErrInvalidQuiz, i, q.CorrectOption)
		}
	}
	return nil
}

// PublicQuestion is a question without its correct option.
type PublicQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// PublicQuiz is the catalog view handed to clients before they play.
type PublicQuiz struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Sponsor     string           `json:"sponsor,omitempty"`
	Prize       string           `json:"prize,omitempty"`
	TimeLimit   int              `json:"timeLimit"`
	Points      int              `json:"points"`
	Questions   []PublicQuestion `json:"questions"`
}

// Public strips correct answers.
func (q Quiz) Public() PublicQuiz {
	out := PublicQuiz{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Category:    q.Category,
		Sponsor:     q.Sponsor,
		Prize:       q.Prize,
		TimeLimit:   q.TimeLimit,
		Points:      q.Points,
		Questions:   make([]PublicQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		out.Questions = append(out.Questions, PublicQuestion{
			Prompt:  question.Prompt,
			Options: append([]Option(nil), question.Options...),
		})
	}
	return out
}

// Status is the lifecycle state of a quiz attempt.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// PointsAward is the result of converting a score into points.
type PointsAward struct {
	Score  int  `json:"score"`
	Total  int  `json:"total"`
	Points int  `json:"points"`
	Earned bool `json:"earned"` // at least half correct
}

// Snapshot is the observable state of an attempt after an operation.
type Snapshot struct {
	AttemptID        string       `json:"attemptId"`
	QuizID           string       `json:"quizId"`
	UserID           string       `json:"userId"`
	Status           Status       `json:"status"`
	CurrentIndex     int          `json:"currentIndex"`
	TotalQuestions   int          `json:"totalQuestions"`
	RemainingSeconds int          `json:"remainingSeconds"`
	TimeLimit        int          `json:"timeLimit"`
	Answers          []string     `json:"answers"`
	Score            *int         `json:"score,omitempty"`
	Award            *PointsAward `json:"award,omitempty"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Answered reports whether the current question has a recorded answer.
func (s Snapshot) Answered() bool {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Answers) {
		return false
	}
	return s.Answers[s.CurrentIndex] != Unanswered
}

// EventType names a session event.
type EventType string

const (
	EventState        EventType = "state"
	EventPointsEarned EventType = "pointsEarned"
)

// BalanceChange is the ledger movement behind a points-earned event.
type BalanceChange struct {
	Previous int `json:"previous"`
	Balance  int `json:"balance"`
}

// SessionEvent is delivered to subscribers of an attempt.
type SessionEvent struct {
	Type     EventType      `json:"type"`
	Snapshot Snapshot       `json:"snapshot"`
	Award    *PointsAward   `json:"award,omitempty"`
	Balance  *BalanceChange `json:"balance,omitempty"`
}
