package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"engage-quiz/internal/app"
	"engage-quiz/internal/domain"
)

// RESTHandler serves the read-only catalog endpoints.
type RESTHandler struct {
	service *app.QuizService
	logger  *slog.Logger
}

func NewRESTHandler(service *app.QuizService, logger *slog.Logger) *RESTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RESTHandler{service: service, logger: logger}
}

// Register mounts the handler's routes and the websocket endpoint on mux.
func Register(mux *http.ServeMux, rest *RESTHandler, ws *WSHandler) {
	mux.HandleFunc("/healthz", rest.Health)
	mux.HandleFunc("/rewards", rest.Rewards)
	mux.HandleFunc("/quizzes/", rest.Quiz)
	mux.HandleFunc("/ws", ws.ServeWS)
}

func (h *RESTHandler) Health(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func (h *RESTHandler) Rewards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rewards, err := h.service.Rewards(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, rewards)
}

// Quiz serves GET /quizzes/{id} without the correct answers.
func (h *RESTHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	quizID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/quizzes/"), "/")
	if quizID == "" || strings.Contains(quizID, "/") {
		http.NotFound(w, r)
		return
	}
	quiz, err := h.service.Quiz(r.Context(), quizID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.writeJSON(w, quiz)
}

func (h *RESTHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrRewardNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case app.IsClientError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *RESTHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "err", err)
	}
}
