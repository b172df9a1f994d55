package service

import (
	"fmt"
	"math"

	"arcade-arena/internal/constants"
	"arcade-arena/internal/domain"
	"arcade-arena/internal/ranking"
	"arcade-arena/internal/repository"

	"github.com/rs/zerolog"
)

type LeaderboardRow struct {
	Rank     int
	PlayerID int
	Name     string
	Rating   int
	Wins     int
	Losses   int
}

// RankingService owns the per-game skill indexes, the ELO arithmetic
// and leaderboard generation.
type RankingService struct {
	indexes map[string]*ranking.Index
	players *repository.PlayerRepository
	logger  zerolog.Logger
}

func NewRankingService(players *repository.PlayerRepository, logger zerolog.Logger) *RankingService {
	indexes := make(map[string]*ranking.Index, len(domain.Games()))
	for _, game := range domain.Games() {
		indexes[game] = ranking.NewIndex()
	}
	return &RankingService{indexes: indexes, players: players, logger: logger}
}

func (s *RankingService) indexFor(game string) (*ranking.Index, error) {
	index, ok := s.indexes[game]
	if !ok {
		return nil, fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}
	return index, nil
}

// AddToRanking inserts the player's current rating into the game's
// index. Insert is idempotent by key.
func (s *RankingService) AddToRanking(playerID int, game string) error {
	player, err := s.players.Get(playerID)
	if err != nil {
		return err
	}
	index, err := s.indexFor(game)
	if err != nil {
		return err
	}
	index.Insert(domain.RankingEntry{Rating: player.Rating, PlayerID: playerID})
	return nil
}

// RemoveFromRanking removes by the rating the entry was inserted
// under, which may differ from the profile's current rating mid-update.
func (s *RankingService) RemoveFromRanking(playerID, rating int, game string) error {
	index, err := s.indexFor(game)
	if err != nil {
		return err
	}
	index.Remove(domain.RankingEntry{Rating: rating, PlayerID: playerID})
	return nil
}

// UpdateRankings applies the ELO update for a decided match. The order
// matters: old entries come out under the old ratings, profiles are
// updated, then new entries go in under the new ratings.
func (s *RankingService) UpdateRankings(winnerID, loserID int, game string) (int, int, error) {
	winner, err := s.players.Get(winnerID)
	if err != nil {
		return 0, 0, err
	}
	loser, err := s.players.Get(loserID)
	if err != nil {
		return 0, 0, err
	}
	index, err := s.indexFor(game)
	if err != nil {
		return 0, 0, err
	}

	winnerOld := winner.Rating
	loserOld := loser.Rating

	index.Remove(domain.RankingEntry{Rating: winnerOld, PlayerID: winnerID})
	index.Remove(domain.RankingEntry{Rating: loserOld, PlayerID: loserID})

	winner.Rating = newRating(winnerOld, expectedScore(winnerOld, loserOld), 1)
	loser.Rating = newRating(loserOld, expectedScore(loserOld, winnerOld), 0)
	winner.Wins++
	loser.Losses++

	if err := s.players.Update(winner); err != nil {
		return 0, 0, err
	}
	if err := s.players.Update(loser); err != nil {
		return 0, 0, err
	}

	index.Insert(domain.RankingEntry{Rating: winner.Rating, PlayerID: winnerID})
	index.Insert(domain.RankingEntry{Rating: loser.Rating, PlayerID: loserID})

	s.logger.Info().
		Str("game", game).
		Int("winner_id", winnerID).
		Int("winner_rating", winner.Rating).
		Int("loser_id", loserID).
		Int("loser_rating", loser.Rating).
		Msg("rankings updated")

	return winner.Rating, loser.Rating, nil
}

// Leaderboard walks the index from the top down. An index entry whose
// player is missing from the directory indicates a bug in the
// invariant-maintenance paths; it is logged and skipped.
func (s *RankingService) Leaderboard(game string, limit int) ([]LeaderboardRow, error) {
	index, err := s.indexFor(game)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > constants.LeaderboardLimit {
		limit = constants.LeaderboardLimit
	}

	rows := make([]LeaderboardRow, 0, limit)
	index.OrderedDescending(func(entry domain.RankingEntry) bool {
		player, err := s.players.Get(entry.PlayerID)
		if err != nil {
			s.logger.Error().
				Int("player_id", entry.PlayerID).
				Str("game", game).
				Msg("ranking entry references unknown player, skipping")
			return true
		}
		rows = append(rows, LeaderboardRow{
			Rank:     len(rows) + 1,
			PlayerID: player.ID,
			Name:     player.Name,
			Rating:   entry.Rating,
			Wins:     player.Wins,
			Losses:   player.Losses,
		})
		return len(rows) < limit
	})

	return rows, nil
}

// FindClosestOpponent returns the ranked player nearest to playerID's
// own rating. The index must hold at least two entries for a non-self
// candidate to exist.
func (s *RankingService) FindClosestOpponent(playerID int, game string) (int, error) {
	player, err := s.players.Get(playerID)
	if err != nil {
		return 0, err
	}
	index, err := s.indexFor(game)
	if err != nil {
		return 0, err
	}
	if index.Len() < 2 {
		return 0, fmt.Errorf("%q has %d ranked players: %w", game, index.Len(), domain.ErrNoOpponent)
	}

	entry, ok := index.FindClosestExcluding(player.Rating, playerID)
	if !ok {
		return 0, fmt.Errorf("%q: %w", game, domain.ErrNoOpponent)
	}
	return entry.PlayerID, nil
}

// FindClosestQueuedHuman returns the human nearest to playerID's
// rating who is waiting for this game, walking past bots, idle entries
// and players queued elsewhere so a valid candidate further out is
// still found. The caller's own entry is ignored whether or not it is
// still in the index.
func (s *RankingService) FindClosestQueuedHuman(playerID int, game string) (int, error) {
	player, err := s.players.Get(playerID)
	if err != nil {
		return 0, err
	}
	index, err := s.indexFor(game)
	if err != nil {
		return 0, err
	}

	entry, ok := index.FindClosestWhere(player.Rating, func(e domain.RankingEntry) bool {
		if e.PlayerID == playerID {
			return false
		}
		candidate, err := s.players.Get(e.PlayerID)
		if err != nil {
			s.logger.Error().
				Int("player_id", e.PlayerID).
				Str("game", game).
				Msg("ranking entry references unknown player, skipping")
			return false
		}
		// Ranked players keep their index entry after a match, so a
		// candidate may be queued for a different game by now.
		return !candidate.IsBot && candidate.InQueue && candidate.PreferredGame == game
	})
	if !ok {
		return 0, fmt.Errorf("%q: %w", game, domain.ErrNoOpponent)
	}
	return entry.PlayerID, nil
}

func (s *RankingService) RankingCount(game string) int {
	index, ok := s.indexes[game]
	if !ok {
		return 0
	}
	return index.Len()
}

// expectedScore is the logistic win probability of self against
// opponent.
func expectedScore(selfRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-selfRating)/400.0))
}

// newRating truncates toward zero rather than rounding; rating
// trajectories must match the reference arithmetic exactly.
func newRating(current int, expected, actual float64) int {
	return current + int(constants.KFactor*(actual-expected))
}
