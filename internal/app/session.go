package app

import (
	"fmt"
	"sync"
	"time"

	"engage-quiz/internal/domain"
)

// SessionConfig is the construction input for an attempt.
type SessionConfig struct {
	QuizID    string
	UserID    string
	Questions []domain.Question
	TimeLimit int // seconds per question
	MaxPoints int

	// Now defaults to time.Now.
	Now func() time.Time
	// OnAward runs once per completed attempt when the score qualifies for points
	// and returns the resulting ledger movement. On error no pointsEarned event is
	// published. It is called with the session locked and must not call back into
	// the session.
	OnAward func(snap domain.Snapshot, award domain.PointsAward) (domain.BalanceChange, error)
}

// Session is the state machine of one quiz attempt.
type Session struct {
	id        string
	quizID    string
	userID    string
	questions []domain.Question
	timeLimit int
	maxPoints int
	now       func() time.Time
	onAward   func(domain.Snapshot, domain.PointsAward) (domain.BalanceChange, error)

	mu          sync.Mutex
	status      domain.Status
	current     int
	answers     []string
	remaining   int
	score       int
	award       *domain.PointsAward
	awarded     bool
	updatedAt   time.Time
	subscribers map[chan domain.SessionEvent]struct{}
}

// NewSession validates the configuration and returns a NotStarted session.
func NewSession(id string, cfg SessionConfig) (*Session, error) {
	if err := domain.ValidateQuestions(cfg.Questions); err != nil {
		return nil, err
	}
	if cfg.TimeLimit <= 0 {
		return nil, fmt.Errorf("%w: time limit must be positive, got %d", domain.ErrInvalidQuiz, cfg.TimeLimit)
	}
	if cfg.MaxPoints < 0 {
		return nil, fmt.Errorf("%w: max points must not be negative, got %d", domain.ErrInvalidQuiz, cfg.MaxPoints)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:          id,
		quizID:      cfg.QuizID,
		userID:      cfg.UserID,
		questions:   append([]domain.Question(nil), cfg.Questions...),
		timeLimit:   cfg.TimeLimit,
		maxPoints:   cfg.MaxPoints,
		now:         now,
		onAward:     cfg.OnAward,
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
	s.resetLocked()
	return s, nil
}

// ID returns the attempt ID.
func (s *Session) ID() string { return s.id }

// UserID returns the owner of the attempt.
func (s *Session) UserID() string { return s.userID }

// QuizID returns the quiz being played.
func (s *Session) QuizID() string { return s.quizID }

// Start moves a NotStarted session to InProgress on the first question.
func (s *Session) Start() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusNotStarted {
		return s.snapshotLocked(), domain.ErrSessionAlreadyStarted
	}
	s.status = domain.StatusInProgress
	s.current = 0
	s.remaining = s.timeLimit
	return s.publishLocked(), nil
}

// RecordAnswer stores value for the current question, replacing any earlier answer.
func (s *Session) RecordAnswer(value string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return s.snapshotLocked(), err
	}
	if !s.questions[s.current].HasOption(value) {
		return s.snapshotLocked(), fmt.Errorf("%w: %q for question %d", domain.ErrOptionNotFound, value, s.current)
	}
	s.answers[s.current] = value
	return s.publishLocked(), nil
}

// Next advances past the current question, completing the attempt on the last one.
// It reports false without error while the current question is unanswered.
func (s *Session) Next() (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return s.snapshotLocked(), false, err
	}
	if s.answers[s.current] == domain.Unanswered {
		return s.snapshotLocked(), false, nil
	}
	s.advanceLocked()
	return s.publishLocked(), true, nil
}

// Submit completes the attempt from the last question once it is answered.
func (s *Session) Submit() (domain.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return s.snapshotLocked(), false, err
	}
	if s.current != len(s.questions)-1 {
		return s.snapshotLocked(), false, domain.ErrNotLastQuestion
	}
	if s.answers[s.current] == domain.Unanswered {
		return s.snapshotLocked(), false, nil
	}
	s.advanceLocked()
	return s.publishLocked(), true, nil
}

// Expire is the timeout path for question index. It advances unconditionally,
// but only if the session is still in progress on that question; later
// duplicates are no-ops.
func (s *Session) Expire(index int) (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress || s.current != index {
		return s.snapshotLocked(), false
	}
	s.advanceLocked()
	return s.publishLocked(), true
}

// Tick counts one second down on the current question. Reaching zero forces a
// timeout advance, or completion on the last question. It reports whether the
// question changed or the attempt completed.
func (s *Session) Tick() (domain.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusInProgress {
		return s.snapshotLocked(), false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	moved := false
	if s.remaining == 0 {
		s.advanceLocked()
		moved = true
	}
	return s.publishLocked(), moved
}

// Reset returns the session to NotStarted with an empty answer sheet.
func (s *Session) Reset() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	return s.publishLocked()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Done reports whether the attempt has completed.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == domain.StatusCompleted
}

// Subscribe returns a channel of session events starting with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- domain.SessionEvent{Type: domain.EventState, Snapshot: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) requireInProgressLocked() error {
	switch s.status {
	case domain.StatusNotStarted:
		return domain.ErrSessionNotStarted
	case domain.StatusCompleted:
		return domain.ErrSessionCompleted
	}
	return nil
}

func (s *Session) advanceLocked() {
	if s.current == len(s.questions)-1 {
		s.completeLocked()
		return
	}
	s.current++
	s.remaining = s.timeLimit
}

func (s *Session) completeLocked() {
	s.score = ComputeScore(s.questions, s.answers)
	s.status = domain.StatusCompleted
	award := DerivePoints(s.score, len(s.questions), s.maxPoints)
	s.award = &award
}

func (s *Session) resetLocked() {
	s.status = domain.StatusNotStarted
	s.current = 0
	s.answers = make([]string, len(s.questions))
	s.remaining = s.timeLimit
	s.score = 0
	s.award = nil
	s.awarded = false
}

// publishLocked stamps the state, fires the award hook on the first qualifying
// completion and fans the snapshot out to subscribers.
func (s *Session) publishLocked() domain.Snapshot {
	s.updatedAt = s.now()
	snap := s.snapshotLocked()
	s.broadcastLocked(domain.SessionEvent{Type: domain.EventState, Snapshot: snap})

	if s.status == domain.StatusCompleted && s.award != nil && s.award.Earned && !s.awarded {
		s.awarded = true
		award := *s.award
		ev := domain.SessionEvent{Type: domain.EventPointsEarned, Snapshot: snap, Award: &award}
		if s.onAward != nil {
			change, err := s.onAward(snap, award)
			if err != nil {
				return snap
			}
			ev.Balance = &change
		}
		s.broadcastLocked(ev)
	}
	return snap
}

// broadcastLocked never blocks. A full subscriber loses its oldest pending
// state event; pointsEarned events are only dropped when nothing else is queued.
func (s *Session) broadcastLocked(ev domain.SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
			continue
		default:
		}

		pending := make([]domain.SessionEvent, 0, cap(ch))
	drain:
		for {
			select {
			case queued := <-ch:
				pending = append(pending, queued)
			default:
				break drain
			}
		}
		dropped := false
		for i, queued := range pending {
			if queued.Type == domain.EventState {
				pending = append(pending[:i], pending[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped && len(pending) == cap(ch) {
			pending = pending[1:]
		}
		for _, queued := range append(pending, ev) {
			select {
			case ch <- queued:
			default:
			}
		}
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		AttemptID:        s.id,
		QuizID:           s.quizID,
		UserID:           s.userID,
		Status:           s.status,
		CurrentIndex:     s.current,
		TotalQuestions:   len(s.questions),
		RemainingSeconds: s.remaining,
		TimeLimit:        s.timeLimit,
		Answers:          append([]string(nil), s.answers...),
		UpdatedAt:        s.updatedAt,
	}
	if s.status == domain.StatusCompleted {
		score := s.score
		snap.Score = &score
		if s.award != nil {
			award := *s.award
			snap.Award = &award
		}
	}
	return snap
}
