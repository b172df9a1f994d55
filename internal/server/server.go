package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"arcade-arena/internal/domain"
	"arcade-arena/internal/engine"
	"arcade-arena/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// ArenaServer is the thin JSON-over-HTTP surface in front of the
// engine. Handlers decode, delegate, and encode; nothing here owns
// matchmaking state.
type ArenaServer struct {
	engine *engine.Engine
	logger zerolog.Logger
}

func NewArenaServer(eng *engine.Engine, logger zerolog.Logger) *ArenaServer {
	return &ArenaServer{engine: eng, logger: logger}
}

func (s *ArenaServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/players", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/players/{id:[0-9]+}", s.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{id:[0-9]+}/status", s.handleGetStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{id:[0-9]+}/history", s.handleGetHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{id:[0-9]+}/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/api/queue/join", s.handleJoinQueue).Methods(http.MethodPost)
	r.HandleFunc("/api/queue/leave", s.handleLeaveQueue).Methods(http.MethodPost)
	r.HandleFunc("/api/queues", s.handleQueueDepths).Methods(http.MethodGet)
	r.HandleFunc("/api/matchmaking/{game}", s.handleProcessMatchmaking).Methods(http.MethodPost)

	r.HandleFunc("/api/matches/{id:[0-9]+}", s.handleGetMatch).Methods(http.MethodGet)
	r.HandleFunc("/api/matches/{id:[0-9]+}/result", s.handleSubmitResult).Methods(http.MethodPost)
	r.HandleFunc("/api/leaderboard/{game}", s.handleLeaderboard).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}

type registerRequest struct {
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
}

type profileResponse struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Rating       int     `json:"rating"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	TotalMatches int     `json:"totalMatches"`
	WinRate      float64 `json:"winRate"`
	IsBot        bool    `json:"isBot"`
	InQueue      bool    `json:"inQueue"`
	InMatch      bool    `json:"inMatch"`
}

func toProfileResponse(p engine.ProfileSnapshot) profileResponse {
	return profileResponse{
		ID:           p.ID,
		Name:         p.Name,
		Rating:       p.Rating,
		Wins:         p.Wins,
		Losses:       p.Losses,
		TotalMatches: p.TotalMatches,
		WinRate:      p.WinRate,
		IsBot:        p.IsBot,
		InQueue:      p.InQueue,
		InMatch:      p.InMatch,
	}
}

func (s *ArenaServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}

	profile, err := s.engine.RegisterOrLogin(req.Name, req.Rating)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (s *ArenaServer) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	profile, err := s.engine.GetProfile(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toProfileResponse(profile))
}

type statusResponse struct {
	InQueue       bool `json:"inQueue"`
	InMatch       bool `json:"inMatch"`
	ActiveMatchID int  `json:"activeMatchId,omitempty"`
}

func (s *ArenaServer) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	status, err := s.engine.GetStatus(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		InQueue:       status.InQueue,
		InMatch:       status.InMatch,
		ActiveMatchID: status.ActiveMatchID,
	})
}

type historyItemResponse struct {
	MatchID      int       `json:"matchId"`
	OpponentID   int       `json:"opponentId"`
	OpponentName string    `json:"opponentName"`
	Game         string    `json:"game"`
	Won          bool      `json:"won"`
	PlayedAt     time.Time `json:"playedAt"`
}

func (s *ArenaServer) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := s.engine.GetHistory(id, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, lo.Map(items, func(item engine.HistoryItem, _ int) historyItemResponse {
		return historyItemResponse{
			MatchID:      item.MatchID,
			OpponentID:   item.OpponentID,
			OpponentName: item.OpponentName,
			Game:         item.Game,
			Won:          item.Won,
			PlayedAt:     item.PlayedAt,
		}
	}))
}

func (s *ArenaServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Logout(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type queueRequest struct {
	PlayerID int    `json:"playerId"`
	Game     string `json:"game"`
}

type joinQueueResponse struct {
	Matched  bool              `json:"matched"`
	MatchID  int               `json:"matchId,omitempty"`
	Opponent *opponentResponse `json:"opponent,omitempty"`
	Position int               `json:"position,omitempty"`
}

type opponentResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

func (s *ArenaServer) handleJoinQueue(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}

	result, err := s.engine.JoinQueue(req.PlayerID, req.Game)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := joinQueueResponse{
		Matched:  result.Matched,
		MatchID:  result.MatchID,
		Position: result.Position,
	}
	if result.Opponent != nil {
		resp.Opponent = &opponentResponse{
			ID:     result.Opponent.ID,
			Name:   result.Opponent.Name,
			Rating: result.Opponent.Rating,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *ArenaServer) handleLeaveQueue(w http.ResponseWriter, r *http.Request) {
	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}
	if err := s.engine.LeaveQueue(req.PlayerID, req.Game); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ArenaServer) handleQueueDepths(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.GetQueueDepths())
}

func (s *ArenaServer) handleProcessMatchmaking(w http.ResponseWriter, r *http.Request) {
	game := mux.Vars(r)["game"]
	created, err := s.engine.ProcessMatchmaking(game)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"matchesCreated": created})
}

type matchResponse struct {
	ID          int       `json:"id"`
	Player1ID   int       `json:"player1Id"`
	Player2ID   int       `json:"player2Id"`
	Game        string    `json:"game"`
	CreatedAt   time.Time `json:"createdAt"`
	WinnerID    int       `json:"winnerId,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
}

func (s *ArenaServer) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	match, err := s.engine.GetMatch(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, matchResponse{
		ID:          match.ID,
		Player1ID:   match.Player1ID,
		Player2ID:   match.Player2ID,
		Game:        match.Game,
		CreatedAt:   match.CreatedAt,
		WinnerID:    match.WinnerID,
		IsCompleted: match.IsCompleted,
	})
}

type resultRequest struct {
	WinnerID int `json:"winnerId"`
}

type resultResponse struct {
	NewWinnerRating int `json:"newWinnerRating"`
	NewLoserRating  int `json:"newLoserRating"`
}

func (s *ArenaServer) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req resultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, domain.ErrInvalidInput)
		return
	}

	outcome, err := s.engine.SubmitResult(id, req.WinnerID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultResponse{
		NewWinnerRating: outcome.WinnerRating,
		NewLoserRating:  outcome.LoserRating,
	})
}

type leaderboardRowResponse struct {
	Rank     int    `json:"rank"`
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

func (s *ArenaServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	game := mux.Vars(r)["game"]
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := s.engine.GetLeaderboard(game, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, lo.Map(rows, func(row service.LeaderboardRow, _ int) leaderboardRowResponse {
		return leaderboardRowResponse{
			Rank:     row.Rank,
			PlayerID: row.PlayerID,
			Name:     row.Name,
			Rating:   row.Rating,
			Wins:     row.Wins,
			Losses:   row.Losses,
		}
	}))
}

func pathInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[key])
	if err != nil {
		return 0, domain.ErrInvalidInput
	}
	return n, nil
}

func (s *ArenaServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *ArenaServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound), errors.Is(err, domain.ErrMatchNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownGame), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyQueued),
		errors.Is(err, domain.ErrAlreadyInMatch),
		errors.Is(err, domain.ErrNotQueued),
		errors.Is(err, domain.ErrMatchCompleted),
		errors.Is(err, domain.ErrNotParticipant),
		errors.Is(err, domain.ErrNoOpponent):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
