package http

import (
	"net/http"

	"gauntlet-game-service/internal/domain"
)

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// serveLeaderboardWS streams leaderboard snapshots: the current standings on
// connect, then a fresh snapshot every time a team finishes.
func (h *Handler) serveLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	initial, err := h.leaderboard.Leaderboard(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard snapshot failed")
		return
	}
	if initial.Entries == nil {
		initial.Entries = []domain.LeaderboardEntry{}
	}
	if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: initial}); err != nil {
		return
	}

	updates, cancel := h.leaderboard.Subscribe()
	defer cancel()

	// Reader goroutine: its only job is to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		case <-closed:
			return
		}
	}
}
