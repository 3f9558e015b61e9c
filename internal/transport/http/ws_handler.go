package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"engage-quiz/internal/app"
	"engage-quiz/internal/domain"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.QuizService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Value string `json:"value"`
}

type pointsEarnedPayload struct {
	AttemptID       string `json:"attemptId"`
	Points          int    `json:"points"`
	Score           int    `json:"score"`
	Total           int    `json:"total"`
	PreviousBalance int    `json:"previousBalance"`
	Balance         int    `json:"balance"`
}

type redeemedPayload struct {
	Redemption domain.Redemption `json:"redemption"`
	Balance    int               `json:"balance"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, opens an attempt for the caller and plays it
// over the connection. The attempt is abandoned when the socket closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	opened, err := h.service.Open(ctx, quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	attemptID := opened.AttemptID
	// r.Context is cancelled once the handler returns, so cleanup uses its own context.
	defer h.service.Abandon(context.Background(), attemptID)

	events, cancel, err := h.service.Subscribe(ctx, attemptID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	log := h.logger.With("attempt", attemptID, "user", userID)
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "err", err)
				return
			}
		}
	}()

	// The session replays its current state on subscribe; the session message replaces it.
	<-events
	send <- outboundMessage[any]{Type: "session", Payload: opened}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg, ok := eventMessage(ev)
				if !ok {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.handle(ctx, attemptID, userID, inbound); ok {
			send <- reply
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle runs one inbound command. State changes reach the client through the
// event stream, so only queries, failures and receipts produce a direct reply.
func (h *WSHandler) handle(ctx context.Context, attemptID, userID string, in inboundMessage) (outboundMessage[any], bool) {
	var err error
	switch in.Type {
	case "start":
		_, err = h.service.Start(ctx, attemptID)
	case "answer":
		var payload answerPayload
		if jsonErr := json.Unmarshal(in.Payload, &payload); jsonErr != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}, true
		}
		_, err = h.service.Answer(ctx, attemptID, payload.Value)
	case "next":
		_, _, err = h.service.Next(ctx, attemptID)
	case "submit":
		_, _, err = h.service.Submit(ctx, attemptID)
	case "reset":
		_, err = h.service.Reset(ctx, attemptID)
	case "balance":
		ledger, balanceErr := h.service.Balance(ctx, userID)
		if balanceErr != nil {
			return errorMessage(balanceErr), true
		}
		return outboundMessage[any]{Type: "balance", Payload: ledger}, true
	case "redeem":
		var req domain.RedemptionRequest
		if jsonErr := json.Unmarshal(in.Payload, &req); jsonErr != nil {
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid redeem payload"}}, true
		}
		receipt, ledger, redeemErr := h.service.Redeem(ctx, userID, req)
		if redeemErr != nil {
			return errorMessage(redeemErr), true
		}
		return outboundMessage[any]{Type: "redeemed", Payload: redeemedPayload{Redemption: receipt, Balance: ledger.Balance}}, true
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}, true
	}
	if err != nil {
		if !app.IsClientError(err) {
			h.logger.Error("ws command failed", "attempt", attemptID, "type", in.Type, "err", err)
		}
		return errorMessage(err), true
	}
	return outboundMessage[any]{}, false
}

func eventMessage(ev domain.SessionEvent) (outboundMessage[any], bool) {
	switch ev.Type {
	case domain.EventState:
		return outboundMessage[any]{Type: string(domain.EventState), Payload: ev.Snapshot}, true
	case domain.EventPointsEarned:
		if ev.Award == nil {
			return outboundMessage[any]{}, false
		}
		payload := pointsEarnedPayload{
			AttemptID: ev.Snapshot.AttemptID,
			Points:    ev.Award.Points,
			Score:     ev.Award.Score,
			Total:     ev.Award.Total,
		}
		if ev.Balance != nil {
			payload.PreviousBalance = ev.Balance.Previous
			payload.Balance = ev.Balance.Balance
		}
		return outboundMessage[any]{Type: string(domain.EventPointsEarned), Payload: payload}, true
	default:
		return outboundMessage[any]{}, false
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
