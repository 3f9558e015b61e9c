package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"engage-quiz/internal/app"
	"engage-quiz/internal/domain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewPlayCmd plays a quiz in the terminal against the configured backend.
func NewPlayCmd(configPath *string) *cobra.Command {
	var quizID, userID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := newBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()
			return playQuiz(cmd.Context(), b.service, quizID, userID, os.Stdin, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&quizID, "quiz", "2", "quiz to play")
	cmd.Flags().StringVar(&userID, "user", "player", "user credited with the points")
	return cmd
}

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgWhite, color.Bold)
	timerColor  = color.New(color.FgYellow)
	goodColor   = color.New(color.FgGreen, color.Bold)
	badColor    = color.New(color.FgRed)
)

// player renders session events and turns input lines into service calls.
type player struct {
	service *app.QuizService
	quiz    domain.PublicQuiz
	userID  string
	out     io.Writer

	attemptID string
	shown     int
	finished  bool
}

func playQuiz(ctx context.Context, service *app.QuizService, quizID, userID string, in io.Reader, out io.Writer) error {
	quiz, err := service.Quiz(ctx, quizID)
	if err != nil {
		return err
	}
	opened, err := service.Open(ctx, quizID, userID)
	if err != nil {
		return err
	}
	defer service.Abandon(context.Background(), opened.AttemptID)

	events, cancel, err := service.Subscribe(ctx, opened.AttemptID)
	if err != nil {
		return err
	}
	defer cancel()

	p := &player{service: service, quiz: quiz, userID: userID, out: out, attemptID: opened.AttemptID, shown: -1}
	titleColor.Fprintf(out, "%s\n", quiz.Title)
	fmt.Fprintf(out, "%d questions, %ds each, up to %d points.\n", len(quiz.Questions), quiz.TimeLimit, quiz.Points)
	fmt.Fprintln(out, "Type an option letter to answer, n for next, s to submit, r to restart, q to quit. Press enter to begin.")

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if p.render(ev) {
				return nil
			}
		case line, ok := <-lines:
			if !ok {
				// Flush what the last commands produced, then stop.
				for {
					select {
					case ev := <-events:
						if p.render(ev) {
							return nil
						}
					default:
						return nil
					}
				}
			}
			if line == "q" {
				return nil
			}
			p.command(ctx, line)
		}
	}
}

func (p *player) command(ctx context.Context, line string) {
	snap, err := p.service.Snapshot(ctx, p.attemptID)
	if err != nil {
		badColor.Fprintf(p.out, "%v\n", err)
		return
	}
	switch {
	case snap.Status == domain.StatusNotStarted:
		_, err = p.service.Start(ctx, p.attemptID)
	case line == "n":
		var advanced bool
		_, advanced, err = p.service.Next(ctx, p.attemptID)
		if err == nil && !advanced {
			badColor.Fprintln(p.out, "Pick an answer first.")
		}
	case line == "s":
		var done bool
		_, done, err = p.service.Submit(ctx, p.attemptID)
		if err == nil && !done {
			badColor.Fprintln(p.out, "Pick an answer first.")
		}
	case line == "r":
		p.shown, p.finished = -1, false
		if _, err = p.service.Reset(ctx, p.attemptID); err == nil {
			_, err = p.service.Start(ctx, p.attemptID)
		}
	case line != "":
		_, err = p.service.Answer(ctx, p.attemptID, strings.ToLower(line))
	}
	if err != nil {
		badColor.Fprintf(p.out, "%v\n", err)
	}
}

// render prints one event and reports whether the game is over.
func (p *player) render(ev domain.SessionEvent) bool {
	snap := ev.Snapshot
	switch ev.Type {
	case domain.EventPointsEarned:
		if ev.Balance == nil {
			goodColor.Fprintf(p.out, "You earned %d points!\n", ev.Award.Points)
			return true
		}
		goodColor.Fprintf(p.out, "You earned %d points! Balance: %d\n", ev.Award.Points, ev.Balance.Balance)
		return true
	case domain.EventState:
	default:
		return false
	}

	switch snap.Status {
	case domain.StatusInProgress:
		if snap.CurrentIndex != p.shown {
			p.shown = snap.CurrentIndex
			p.printQuestion(snap)
			return false
		}
		if r := snap.RemainingSeconds; r > 0 && (r <= 5 || r%10 == 0) {
			timerColor.Fprintf(p.out, "%ds left\n", r)
		}
	case domain.StatusCompleted:
		if p.finished {
			return false
		}
		p.finished = true
		score := 0
		if snap.Score != nil {
			score = *snap.Score
		}
		titleColor.Fprintf(p.out, "Quiz complete: %d/%d correct.\n", score, snap.TotalQuestions)
		if snap.Award == nil || !snap.Award.Earned {
			fmt.Fprintln(p.out, "Answer at least half correctly to earn points.")
			return true
		}
	}
	return false
}

func (p *player) printQuestion(snap domain.Snapshot) {
	question := p.quiz.Questions[snap.CurrentIndex]
	promptColor.Fprintf(p.out, "\nQuestion %d of %d: %s\n", snap.CurrentIndex+1, snap.TotalQuestions, question.Prompt)
	for _, option := range question.Options {
		fmt.Fprintf(p.out, "  %s) %s\n", option.Value, option.Label)
	}
	timerColor.Fprintf(p.out, "%ds left\n", snap.RemainingSeconds)
}
