package domain

import (
	"time"
)

// Game names are fixed at startup; the engine rejects anything else.
const (
	GamePingpong = "pingpong"
	GameSnake    = "snake"
	GameTank     = "tank"
)

func Games() []string {
	return []string{GamePingpong, GameSnake, GameTank}
}

func ValidGame(name string) bool {
	return name == GamePingpong || name == GameSnake || name == GameTank
}

// MaxRecentOpponents bounds the rotation window used to avoid
// immediately repeating a pairing.
const MaxRecentOpponents = 3

type Player struct {
	ID            int
	Name          string
	Rating        int
	Wins          int
	Losses        int
	PreferredGame string
	InQueue       bool
	InMatch       bool
	IsBot         bool

	// Most-recent-first, capped at MaxRecentOpponents.
	RecentOpponents []int
}

// AddRecentOpponent pushes opponentID to the front of the rotation
// window, evicting the oldest entry when full.
func (p *Player) AddRecentOpponent(opponentID int) {
	recent := make([]int, 0, MaxRecentOpponents)
	recent = append(recent, opponentID)
	for _, id := range p.RecentOpponents {
		if len(recent) == MaxRecentOpponents {
			break
		}
		recent = append(recent, id)
	}
	p.RecentOpponents = recent
}

func (p *Player) WasRecentOpponent(opponentID int) bool {
	for _, id := range p.RecentOpponents {
		if id == opponentID {
			return true
		}
	}
	return false
}

func (p *Player) TotalMatches() int {
	return p.Wins + p.Losses
}

func (p *Player) WinRate() float64 {
	total := p.TotalMatches()
	if total == 0 {
		return 0
	}
	return float64(p.Wins) / float64(total)
}

// RankingEntry is the key stored in a game's skill index. Ordering is
// rating first, player id second, so no two distinct entries compare
// equal even with identical ratings.
type RankingEntry struct {
	Rating   int
	PlayerID int
}

func (e RankingEntry) Less(other RankingEntry) bool {
	if e.Rating != other.Rating {
		return e.Rating < other.Rating
	}
	return e.PlayerID < other.PlayerID
}

// QueueEntry is one waiting player in a game's FIFO queue.
type QueueEntry struct {
	PlayerID int
	JoinedAt time.Time
}

type Match struct {
	ID        int
	Player1ID int
	Player2ID int
	Game      string
	CreatedAt time.Time

	WinnerID    int
	IsCompleted bool
}

// OpponentOf returns the other participant's id, or 0 if playerID is
// not part of the match.
func (m *Match) OpponentOf(playerID int) int {
	switch playerID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	}
	return 0
}

func (m *Match) HasParticipant(playerID int) bool {
	return playerID == m.Player1ID || playerID == m.Player2ID
}

// HistoryRecord is a completed match as seen from one player's side.
type HistoryRecord struct {
	ID         string
	MatchID    int
	OpponentID int
	Game       string
	Won        bool
	PlayedAt   time.Time
}
