package repository

import (
	"fmt"
	"time"

	"arcade-arena/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// HistoryRepository keeps each player's completed matches in
// chronological append order. Records are never mutated or removed.
type HistoryRepository struct {
	histories map[int][]domain.HistoryRecord
	logger    zerolog.Logger
}

func NewHistoryRepository(logger zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		histories: make(map[int][]domain.HistoryRecord),
		logger:    logger,
	}
}

// Record appends the completed match to both participants' logs.
func (r *HistoryRepository) Record(match domain.Match) error {
	if !match.IsCompleted {
		return fmt.Errorf("match %d not completed: %w", match.ID, domain.ErrInvalidInput)
	}

	for _, playerID := range []int{match.Player1ID, match.Player2ID} {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate history id: %w", err)
		}
		r.histories[playerID] = append(r.histories[playerID], domain.HistoryRecord{
			ID:         id,
			MatchID:    match.ID,
			OpponentID: match.OpponentOf(playerID),
			Game:       match.Game,
			Won:        match.WinnerID == playerID,
			PlayedAt:   time.Now(),
		})
	}

	r.logger.Debug().
		Int("match_id", match.ID).
		Int("winner_id", match.WinnerID).
		Msg("match recorded to history")

	return nil
}

// LastN returns the most recent n records in chronological order.
func (r *HistoryRepository) LastN(playerID, n int) []domain.HistoryRecord {
	history := r.histories[playerID]
	if n <= 0 || n >= len(history) {
		n = len(history)
	}
	out := make([]domain.HistoryRecord, n)
	copy(out, history[len(history)-n:])
	return out
}

func (r *HistoryRepository) Count(playerID int) int {
	return len(r.histories[playerID])
}
