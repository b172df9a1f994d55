package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"arcade-arena/internal/config"
	"arcade-arena/internal/constants"
	"arcade-arena/internal/domain"
	"arcade-arena/internal/metrics"
	"arcade-arena/internal/repository"
	"arcade-arena/internal/service"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Engine is the single owner of all matchmaking state: the player
// directory, wait queues, skill indexes, match store and history. One
// reader-writer lock serializes every logical operation end to end, so
// no caller ever observes a half-applied transition.
type Engine struct {
	mu sync.RWMutex

	players    *repository.PlayerRepository
	matches    *repository.MatchRepository
	history    *repository.HistoryRepository
	rankSvc    *service.RankingService
	matchmaker *service.Matchmaker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func New(
	cfg *config.Config,
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	history *repository.HistoryRepository,
	rankSvc *service.RankingService,
	matchmaker *service.Matchmaker,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) (*Engine, error) {
	e := &Engine{
		players:    players,
		matches:    matches,
		history:    history,
		rankSvc:    rankSvc,
		matchmaker: matchmaker,
		metrics:    metrics,
		logger:     logger,
	}
	if err := e.seedBots(cfg); err != nil {
		return nil, fmt.Errorf("failed to seed bots: %w", err)
	}
	return e, nil
}

// seedBots creates the synthetic roster once at startup: a fixed
// number of bots per game with ratings drawn from the configured band,
// pre-inserted into each game's skill index.
func (e *Engine) seedBots(cfg *config.Config) error {
	span := cfg.BotRatingMax - cfg.BotRatingMin
	n := 0
	for _, game := range domain.Games() {
		for i := 0; i < cfg.BotsPerGame; i++ {
			n++
			rating := cfg.BotRatingMin + rand.Intn(span+1)
			bot := e.players.Create(fmt.Sprintf("BOT_%d", n), rating, true)

			bot.PreferredGame = game
			if err := e.players.Update(bot); err != nil {
				return err
			}
			if err := e.matchmaker.RegisterBot(bot.ID, game); err != nil {
				return err
			}
			if err := e.rankSvc.AddToRanking(bot.ID, game); err != nil {
				return err
			}

			e.logger.Info().
				Str("name", bot.Name).
				Int("rating", rating).
				Str("game", game).
				Msg("bot seeded")
		}
	}
	return nil
}

// RegisterOrLogin resolves a display name to a profile, creating one
// with the starting rating if the name is new. Registering the same
// name twice returns the same profile.
func (e *Engine) RegisterOrLogin(name string, startingRating int) (ProfileSnapshot, error) {
	if name == "" {
		return ProfileSnapshot{}, fmt.Errorf("display name required: %w", domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.players.GetByName(name); ok {
		return snapshotProfile(existing), nil
	}

	if startingRating <= 0 {
		startingRating = constants.InitialRating
	}
	player := e.players.Create(name, startingRating, false)
	e.metrics.Registrations.Inc()

	e.logger.Info().
		Int("player_id", player.ID).
		Str("name", name).
		Int("rating", startingRating).
		Msg("player registered")

	return snapshotProfile(player), nil
}

func (e *Engine) GetProfile(playerID int) (ProfileSnapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	player, err := e.players.Get(playerID)
	if err != nil {
		return ProfileSnapshot{}, err
	}
	return snapshotProfile(player), nil
}

// JoinQueue enqueues the player and immediately attempts a match. The
// caller learns either the match it landed in or its queue position.
func (e *Engine) JoinQueue(playerID int, game string) (JoinResult, error) {
	if !domain.ValidGame(game) {
		return JoinResult{}, fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshQueueDepth(game)

	if err := e.matchmaker.JoinQueue(playerID, game); err != nil {
		return JoinResult{}, err
	}
	position := e.matchmaker.QueueSize(game)

	match, err := e.matchmaker.TryCreateMatch(game)
	if err != nil {
		if errors.Is(err, domain.ErrNoOpponent) {
			return JoinResult{Position: position}, nil
		}
		return JoinResult{}, err
	}
	e.metrics.MatchesCreated.WithLabelValues(game).Inc()

	if !match.HasParticipant(playerID) {
		// The attempt paired two other waiting players; the joiner
		// stays in line.
		return JoinResult{Position: e.matchmaker.QueueSize(game)}, nil
	}

	result := JoinResult{Matched: true, MatchID: match.ID}
	if opponent, err := e.players.Get(match.OpponentOf(playerID)); err == nil {
		result.Opponent = &OpponentSnapshot{
			ID:     opponent.ID,
			Name:   opponent.Name,
			Rating: opponent.Rating,
		}
	}
	return result, nil
}

func (e *Engine) LeaveQueue(playerID int, game string) error {
	if !domain.ValidGame(game) {
		return fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshQueueDepth(game)

	return e.matchmaker.LeaveQueue(playerID, game)
}

func (e *Engine) GetStatus(playerID int) (Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	player, err := e.players.Get(playerID)
	if err != nil {
		return Status{}, err
	}

	status := Status{InQueue: player.InQueue, InMatch: player.InMatch}
	if match, ok := e.matches.ActiveMatchFor(playerID); ok {
		status.ActiveMatchID = match.ID
	}
	return status, nil
}

// ProcessMatchmaking pairs waiting players until the queue drops below
// two, for callers that poll rather than match on join.
func (e *Engine) ProcessMatchmaking(game string) (int, error) {
	if !domain.ValidGame(game) {
		return 0, fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.refreshQueueDepth(game)

	created := e.matchmaker.ProcessMatchmaking(game)
	if created > 0 {
		e.metrics.MatchesCreated.WithLabelValues(game).Add(float64(created))
	}
	return created, nil
}

func (e *Engine) GetMatch(matchID int) (MatchSnapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	match, err := e.matches.Get(matchID)
	if err != nil {
		return MatchSnapshot{}, err
	}
	return snapshotMatch(match), nil
}

// SubmitResult completes a match and reports both updated ratings.
func (e *Engine) SubmitResult(matchID, winnerID int) (ResultOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	winnerRating, loserRating, err := e.matchmaker.SubmitMatchResult(matchID, winnerID)
	if err != nil {
		return ResultOutcome{}, err
	}

	if match, err := e.matches.Get(matchID); err == nil {
		e.metrics.MatchesResolved.WithLabelValues(match.Game).Inc()
	}

	return ResultOutcome{WinnerRating: winnerRating, LoserRating: loserRating}, nil
}

func (e *Engine) GetLeaderboard(game string, limit int) ([]service.LeaderboardRow, error) {
	if !domain.ValidGame(game) {
		return nil, fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.rankSvc.Leaderboard(game, limit)
}

func (e *Engine) GetHistory(playerID, limit int) ([]HistoryItem, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, err := e.players.Get(playerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > constants.HistoryLimit {
		limit = constants.HistoryLimit
	}

	records := e.history.LastN(playerID, limit)
	return lo.Map(records, func(record domain.HistoryRecord, _ int) HistoryItem {
		opponentName := "Unknown"
		if opponent, err := e.players.Get(record.OpponentID); err == nil {
			opponentName = opponent.Name
		}
		return HistoryItem{
			MatchID:      record.MatchID,
			OpponentID:   record.OpponentID,
			OpponentName: opponentName,
			Game:         record.Game,
			Won:          record.Won,
			PlayedAt:     record.PlayedAt,
		}
	}), nil
}

func (e *Engine) GetQueueDepths() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return lo.Associate(domain.Games(), func(game string) (string, int) {
		return game, e.matchmaker.QueueSize(game)
	})
}

// Logout removes the player from every game's queue and clears the
// queued flag. An active match is left untouched; its result can still
// be submitted.
func (e *Engine) Logout(playerID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	player, err := e.players.Get(playerID)
	if err != nil {
		return err
	}

	for _, game := range domain.Games() {
		if e.matchmaker.InQueue(playerID, game) {
			if err := e.matchmaker.LeaveQueue(playerID, game); err != nil {
				e.logger.Warn().Err(err).
					Int("player_id", playerID).
					Str("game", game).
					Msg("failed to leave queue on logout")
			}
		}
		e.refreshQueueDepth(game)
	}

	player, err = e.players.Get(playerID)
	if err != nil {
		return err
	}
	player.InQueue = false
	if err := e.players.Update(player); err != nil {
		return err
	}

	e.logger.Info().Int("player_id", playerID).Msg("player logged out")
	return nil
}

func (e *Engine) refreshQueueDepth(game string) {
	e.metrics.QueueDepth.WithLabelValues(game).Set(float64(e.matchmaker.QueueSize(game)))
}
