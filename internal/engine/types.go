package engine

import (
	"time"

	"arcade-arena/internal/domain"
)

// ProfileSnapshot is a read-only copy of a player profile handed to
// the transport layer.
type ProfileSnapshot struct {
	ID           int
	Name         string
	Rating       int
	Wins         int
	Losses       int
	TotalMatches int
	WinRate      float64
	IsBot        bool
	InQueue      bool
	InMatch      bool
}

func snapshotProfile(p domain.Player) ProfileSnapshot {
	return ProfileSnapshot{
		ID:           p.ID,
		Name:         p.Name,
		Rating:       p.Rating,
		Wins:         p.Wins,
		Losses:       p.Losses,
		TotalMatches: p.TotalMatches(),
		WinRate:      p.WinRate(),
		IsBot:        p.IsBot,
		InQueue:      p.InQueue,
		InMatch:      p.InMatch,
	}
}

type OpponentSnapshot struct {
	ID     int
	Name   string
	Rating int
}

// JoinResult reports the outcome of a queue join: either an immediate
// match or a queue position.
type JoinResult struct {
	Matched  bool
	MatchID  int
	Opponent *OpponentSnapshot
	Position int
}

type Status struct {
	InQueue       bool
	InMatch       bool
	ActiveMatchID int
}

type MatchSnapshot struct {
	ID          int
	Player1ID   int
	Player2ID   int
	Game        string
	CreatedAt   time.Time
	WinnerID    int
	IsCompleted bool
}

func snapshotMatch(m domain.Match) MatchSnapshot {
	return MatchSnapshot{
		ID:          m.ID,
		Player1ID:   m.Player1ID,
		Player2ID:   m.Player2ID,
		Game:        m.Game,
		CreatedAt:   m.CreatedAt,
		WinnerID:    m.WinnerID,
		IsCompleted: m.IsCompleted,
	}
}

// ResultOutcome carries both post-update ratings back to the caller.
type ResultOutcome struct {
	WinnerRating int
	LoserRating  int
}

type HistoryItem struct {
	MatchID      int
	OpponentID   int
	OpponentName string
	Game         string
	Won          bool
	PlayedAt     time.Time
}
