package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gauntlet-game-service/internal/app"
	"gauntlet-game-service/internal/domain"
)

// Handler exposes the game over JSON/HTTP: login, the five fetch/submit
// round pairs, status, timeout completion, and the leaderboard.
type Handler struct {
	auth        *app.AuthService
	game        *app.GameService
	leaderboard *app.LeaderboardService
	verifier    TokenVerifier
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

func NewHandler(auth *app.AuthService, game *app.GameService, leaderboard *app.LeaderboardService, verifier TokenVerifier, log zerolog.Logger) *Handler {
	return &Handler{
		auth:        auth,
		game:        game,
		leaderboard: leaderboard,
		verifier:    verifier,
		log:         log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes builds the full route table.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("GET /api/leaderboard", h.getLeaderboard)
	mux.HandleFunc("GET /ws/leaderboard", h.serveLeaderboardWS)

	mux.HandleFunc("GET /api/game/status", h.requireAuth(h.status))
	mux.HandleFunc("POST /api/game/complete", h.requireAuth(h.complete))

	for _, round := range domain.Rounds() {
		round := round
		mux.HandleFunc("GET /api/game/"+string(round), h.requireAuth(h.fetchRound(round)))
		mux.HandleFunc("POST /api/game/"+string(round)+"/submit", h.requireAuth(h.submitRound(round)))
	}
	return mux
}

type loginRequest struct {
	TeamID   string `json:"teamId"`
	Password string `json:"password"`
}

type loginProgress struct {
	StartTime       time.Time                            `json:"startTime"`
	CompletedRounds int                                  `json:"completedRounds"`
	Locks           map[domain.RoundKey]domain.LockState `json:"locks"`
}

type loginResponse struct {
	Token    string        `json:"token"`
	TeamID   string        `json:"teamId"`
	Progress loginProgress `json:"progress"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "please provide teamId and password")
		return
	}
	res, err := h.auth.Login(r.Context(), req.TeamID, req.Password)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:  res.Token,
		TeamID: res.TeamID,
		Progress: loginProgress{
			StartTime:       res.Progress.StartTime,
			CompletedRounds: res.Progress.CompletedRounds,
			Locks:           res.Progress.Locks,
		},
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	report, err := h.game.Status(r.Context(), teamID(r))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type fetchResponse struct {
	Status    string                  `json:"status,omitempty"`
	Question  *domain.PublicQuestion  `json:"question,omitempty"`
	Questions []domain.PublicQuestion `json:"questions,omitempty"`
	Variant   domain.Variant          `json:"variant,omitempty"`
}

func (h *Handler) fetchRound(round domain.RoundKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variant := domain.Variant(r.URL.Query().Get("variant"))
		res, err := h.game.Fetch(r.Context(), teamID(r), round, variant)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		if res.Unlocked {
			writeJSON(w, http.StatusOK, fetchResponse{Status: "unlocked"})
			return
		}
		resp := fetchResponse{Variant: res.Variant}
		if round == domain.RoundMCQ {
			resp.Questions = res.Questions
		} else {
			resp.Question = &res.Questions[0]
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type submitRequest struct {
	Answer  string            `json:"answer"`
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Correct         bool                                 `json:"correct"`
	Locks           map[domain.RoundKey]domain.LockState `json:"locks"`
	CompletedRounds int                                  `json:"completedRounds"`
	TotalTime       *int64                               `json:"totalTime,omitempty"`
	EndTime         *time.Time                           `json:"endTime,omitempty"`
}

func (h *Handler) submitRound(round domain.RoundKey) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid answer payload")
			return
		}
		res, err := h.game.Submit(r.Context(), teamID(r), round, app.Submission{
			Answer:  req.Answer,
			Answers: req.Answers,
		})
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		resp := submitResponse{
			Correct:         res.Correct,
			Locks:           res.Locks,
			CompletedRounds: res.CompletedRounds,
		}
		if res.EndTime != nil {
			resp.EndTime = res.EndTime
			total := res.TotalTime
			resp.TotalTime = &total
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type completeResponse struct {
	Message         string                               `json:"message"`
	EndTime         time.Time                            `json:"endTime"`
	TotalTime       int64                                `json:"totalTime"`
	Locks           map[domain.RoundKey]domain.LockState `json:"locks"`
	CompletedRounds int                                  `json:"completedRounds"`
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	res, err := h.game.CompleteGame(r.Context(), teamID(r))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	msg := "game completed due to timeout"
	if res.AlreadyCompleted {
		msg = "game already completed"
	}
	writeJSON(w, http.StatusOK, completeResponse{
		Message:         msg,
		EndTime:         res.EndTime,
		TotalTime:       res.TotalTime,
		Locks:           res.Locks,
		CompletedRounds: res.CompletedRounds,
	})
}

func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.leaderboard.Leaderboard(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	if lb.Entries == nil {
		lb.Entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, lb)
}

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}

// writeAppError maps domain errors to HTTP statuses with safe messages.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrRoundLocked):
		writeError(w, http.StatusForbidden, "round permanently locked")
	case errors.Is(err, domain.ErrProgressNotFound):
		writeError(w, http.StatusNotFound, "progress not found")
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeError(w, http.StatusNotFound, "no questions found")
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "question not found")
	case errors.Is(err, domain.ErrNoQuestionAssigned):
		writeError(w, http.StatusBadRequest, "no question assigned, fetch question first")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
