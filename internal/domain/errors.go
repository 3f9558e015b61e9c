package domain

import "errors"

var (
	// ErrSessionNotFound is returned when an attempt ID is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionNotStarted is returned when an action needs a running session.
	ErrSessionNotStarted = errors.New("quiz session not started")
	// ErrSessionAlreadyStarted is returned when Start is called twice on one attempt.
	ErrSessionAlreadyStarted = errors.New("quiz session already started")
	// ErrSessionCompleted is returned for mutations after completion; completed state is frozen.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrNotLastQuestion is returned when Submit is called before the last question.
	ErrNotLastQuestion = errors.New("submit is only allowed on the last question")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates malformed quiz configuration.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrOptionNotFound indicates an answer value that is not an option of the current question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrRewardNotFound indicates an unknown reward ID.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrInsufficientPoints is returned when the ledger cannot cover a reward.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidRedemptionMethod is returned for methods other than web and ussd.
	ErrInvalidRedemptionMethod = errors.New("invalid redemption method")
	// ErrPhoneRequired is returned when a ussd redemption has no phone number.
	ErrPhoneRequired = errors.New("phone number required")
)
