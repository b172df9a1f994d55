package repository

import (
	"fmt"

	"arcade-arena/internal/domain"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// PlayerRepository is the in-memory player directory. It owns every
// profile; other components mutate profiles only through Update.
type PlayerRepository struct {
	players map[int]domain.Player
	nextID  *atomic.Int64
	logger  zerolog.Logger
}

func NewPlayerRepository(logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		players: make(map[int]domain.Player),
		nextID:  atomic.NewInt64(0),
		logger:  logger,
	}
}

// Create assigns the next sequential id and stores the profile.
func (r *PlayerRepository) Create(name string, rating int, isBot bool) domain.Player {
	player := domain.Player{
		ID:     int(r.nextID.Inc()),
		Name:   name,
		Rating: rating,
		IsBot:  isBot,
	}
	r.players[player.ID] = player

	r.logger.Debug().
		Int("player_id", player.ID).
		Str("name", name).
		Int("rating", rating).
		Bool("is_bot", isBot).
		Msg("player created")

	return player
}

// Get returns a copy of the profile; callers write back via Update.
func (r *PlayerRepository) Get(id int) (domain.Player, error) {
	player, ok := r.players[id]
	if !ok {
		return domain.Player{}, fmt.Errorf("player %d: %w", id, domain.ErrPlayerNotFound)
	}
	return player, nil
}

func (r *PlayerRepository) GetByName(name string) (domain.Player, bool) {
	for _, player := range r.players {
		if player.Name == name {
			return player, true
		}
	}
	return domain.Player{}, false
}

func (r *PlayerRepository) Update(player domain.Player) error {
	if _, ok := r.players[player.ID]; !ok {
		return fmt.Errorf("player %d: %w", player.ID, domain.ErrPlayerNotFound)
	}
	r.players[player.ID] = player
	return nil
}

func (r *PlayerRepository) Count() int {
	return len(r.players)
}
