package repository

import (
	"fmt"
	"time"

	"arcade-arena/internal/domain"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// MatchRepository tracks every match created during the session.
// Matches are never deleted; completed ones stay for lookup by id.
type MatchRepository struct {
	matches map[int]domain.Match
	nextID  *atomic.Int64
	logger  zerolog.Logger
}

func NewMatchRepository(logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		matches: make(map[int]domain.Match),
		nextID:  atomic.NewInt64(0),
		logger:  logger,
	}
}

// Create assigns the next sequential match id and stores the match.
func (r *MatchRepository) Create(player1ID, player2ID int, game string) domain.Match {
	match := domain.Match{
		ID:        int(r.nextID.Inc()),
		Player1ID: player1ID,
		Player2ID: player2ID,
		Game:      game,
		CreatedAt: time.Now(),
	}
	r.matches[match.ID] = match

	r.logger.Debug().
		Int("match_id", match.ID).
		Int("player1_id", player1ID).
		Int("player2_id", player2ID).
		Str("game", game).
		Msg("match created")

	return match
}

func (r *MatchRepository) Get(id int) (domain.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return domain.Match{}, fmt.Errorf("match %d: %w", id, domain.ErrMatchNotFound)
	}
	return match, nil
}

func (r *MatchRepository) Update(match domain.Match) error {
	if _, ok := r.matches[match.ID]; !ok {
		return fmt.Errorf("match %d: %w", match.ID, domain.ErrMatchNotFound)
	}
	r.matches[match.ID] = match
	return nil
}

// ActiveMatchFor scans for an uncompleted match containing playerID.
// Linear over all matches, which is fine at this scale.
func (r *MatchRepository) ActiveMatchFor(playerID int) (domain.Match, bool) {
	for _, match := range r.matches {
		if !match.IsCompleted && match.HasParticipant(playerID) {
			return match, true
		}
	}
	return domain.Match{}, false
}

func (r *MatchRepository) Count() int {
	return len(r.matches)
}
