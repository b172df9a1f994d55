package service

import (
	"fmt"
	"math"

	"arcade-arena/internal/domain"
	"arcade-arena/internal/ranking"
	"arcade-arena/internal/repository"

	"github.com/rs/zerolog"
)

// Matchmaker orchestrates the wait queues, the skill indexes and the
// bot roster to produce matches, and owns the match lifecycle.
//
// Pairing prefers the closest-rated waiting human; when none is
// available a bot fills in, rotating away from recently played bots.
type Matchmaker struct {
	queues  map[string]*ranking.WaitQueue
	bots    map[string][]int
	players *repository.PlayerRepository
	matches *repository.MatchRepository
	history *repository.HistoryRepository
	rankSvc *RankingService
	logger  zerolog.Logger
}

func NewMatchmaker(
	players *repository.PlayerRepository,
	matches *repository.MatchRepository,
	history *repository.HistoryRepository,
	rankSvc *RankingService,
	logger zerolog.Logger,
) *Matchmaker {
	queues := make(map[string]*ranking.WaitQueue, len(domain.Games()))
	bots := make(map[string][]int, len(domain.Games()))
	for _, game := range domain.Games() {
		queues[game] = ranking.NewWaitQueue()
		bots[game] = nil
	}
	return &Matchmaker{
		queues:  queues,
		bots:    bots,
		players: players,
		matches: matches,
		history: history,
		rankSvc: rankSvc,
		logger:  logger,
	}
}

func (m *Matchmaker) queueFor(game string) (*ranking.WaitQueue, error) {
	queue, ok := m.queues[game]
	if !ok {
		return nil, fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}
	return queue, nil
}

// RegisterBot adds a seeded bot to the game's roster. Bots never sit
// in a wait queue; they are drawn from the roster on demand.
func (m *Matchmaker) RegisterBot(botID int, game string) error {
	if _, ok := m.bots[game]; !ok {
		return fmt.Errorf("%q: %w", game, domain.ErrUnknownGame)
	}
	m.bots[game] = append(m.bots[game], botID)
	return nil
}

// JoinQueue enqueues the player and inserts them into the game's skill
// index. A player already queued or in a match cannot join.
func (m *Matchmaker) JoinQueue(playerID int, game string) error {
	player, err := m.players.Get(playerID)
	if err != nil {
		return err
	}
	if player.InQueue {
		return fmt.Errorf("player %d: %w", playerID, domain.ErrAlreadyQueued)
	}
	if player.InMatch {
		return fmt.Errorf("player %d: %w", playerID, domain.ErrAlreadyInMatch)
	}
	queue, err := m.queueFor(game)
	if err != nil {
		return err
	}

	queue.Enqueue(playerID)

	player.InQueue = true
	player.PreferredGame = game
	if err := m.players.Update(player); err != nil {
		return err
	}

	if err := m.rankSvc.AddToRanking(playerID, game); err != nil {
		return err
	}

	m.logger.Info().
		Int("player_id", playerID).
		Str("game", game).
		Int("position", queue.Size()).
		Msg("player joined queue")

	return nil
}

// LeaveQueue removes the player from the wait queue and the skill
// index and clears the queued flag.
func (m *Matchmaker) LeaveQueue(playerID int, game string) error {
	player, err := m.players.Get(playerID)
	if err != nil {
		return err
	}
	if !player.InQueue {
		return fmt.Errorf("player %d: %w", playerID, domain.ErrNotQueued)
	}
	queue, err := m.queueFor(game)
	if err != nil {
		return err
	}
	if !queue.RemoveByID(playerID) {
		return fmt.Errorf("player %d not in %q queue: %w", playerID, game, domain.ErrNotQueued)
	}

	player.InQueue = false
	if err := m.players.Update(player); err != nil {
		return err
	}
	if err := m.rankSvc.RemoveFromRanking(playerID, player.Rating, game); err != nil {
		return err
	}

	m.logger.Info().Int("player_id", playerID).Str("game", game).Msg("player left queue")
	return nil
}

// TryCreateMatch attempts to produce one match for the game.
//
// A lone waiting player is matched against a bot. With two or more
// waiting, the front player is dequeued, pulled out of the skill index
// to prevent self-matching, and paired with the closest waiting human;
// if no human qualifies the bot fallback runs, and if that fails too
// the player is requeued.
func (m *Matchmaker) TryCreateMatch(game string) (domain.Match, error) {
	queue, err := m.queueFor(game)
	if err != nil {
		return domain.Match{}, err
	}
	if queue.Size() == 0 {
		return domain.Match{}, fmt.Errorf("%q queue empty: %w", game, domain.ErrNoOpponent)
	}
	if queue.Size() == 1 {
		return m.matchHumanWithBot(game)
	}

	entry, ok := queue.Dequeue()
	if !ok {
		return domain.Match{}, fmt.Errorf("%q queue empty: %w", game, domain.ErrNoOpponent)
	}
	front, err := m.players.Get(entry.PlayerID)
	if err != nil {
		m.logger.Error().
			Int("player_id", entry.PlayerID).
			Str("game", game).
			Msg("queue entry references unknown player, dropping")
		return domain.Match{}, fmt.Errorf("%q: %w", game, domain.ErrNoOpponent)
	}

	// Bots never queue; if one slipped in, push it back and bail out.
	if front.IsBot {
		queue.Requeue(entry)
		return domain.Match{}, fmt.Errorf("bot at queue front: %w", domain.ErrNoOpponent)
	}
	// An in-match player must never sit in a queue; drop the stale
	// entry instead of matching them a second time.
	if front.InMatch {
		m.logger.Error().
			Int("player_id", front.ID).
			Str("game", game).
			Msg("in-match player at queue front, dropping stale entry")
		front.InQueue = false
		if err := m.players.Update(front); err != nil {
			return domain.Match{}, err
		}
		return domain.Match{}, fmt.Errorf("player %d already in match: %w", front.ID, domain.ErrNoOpponent)
	}

	if err := m.rankSvc.RemoveFromRanking(front.ID, front.Rating, game); err != nil {
		return domain.Match{}, err
	}

	opponentID, found := m.findClosestHumanOpponent(front.ID, game)
	if !found {
		if err := m.rankSvc.AddToRanking(front.ID, game); err != nil {
			return domain.Match{}, err
		}
		botID, ok := m.findClosestBotOpponent(front.ID, front.Rating, game)
		if !ok {
			queue.Requeue(entry)
			return domain.Match{}, fmt.Errorf("no human or bot for player %d: %w", front.ID, domain.ErrNoOpponent)
		}
		return m.createMatchBetween(front.ID, botID, game)
	}

	opponent, err := m.players.Get(opponentID)
	if err != nil {
		m.logger.Error().
			Int("player_id", opponentID).
			Str("game", game).
			Msg("ranking entry references unknown player, aborting attempt")
		if err := m.rankSvc.AddToRanking(front.ID, game); err != nil {
			return domain.Match{}, err
		}
		queue.Requeue(entry)
		return domain.Match{}, fmt.Errorf("%q: %w", game, domain.ErrNoOpponent)
	}

	if !queue.RemoveByID(opponentID) {
		m.logger.Error().
			Int("player_id", opponentID).
			Str("game", game).
			Msg("selected opponent missing from wait queue")
	}
	if err := m.rankSvc.RemoveFromRanking(opponentID, opponent.Rating, game); err != nil {
		return domain.Match{}, err
	}

	return m.createMatchBetween(front.ID, opponentID, game)
}

// matchHumanWithBot handles the single-human path: the lone queued
// player is paired against the closest eligible bot.
func (m *Matchmaker) matchHumanWithBot(game string) (domain.Match, error) {
	queue, err := m.queueFor(game)
	if err != nil {
		return domain.Match{}, err
	}
	entry, ok := queue.Dequeue()
	if !ok {
		return domain.Match{}, fmt.Errorf("%q queue empty: %w", game, domain.ErrNoOpponent)
	}
	human, err := m.players.Get(entry.PlayerID)
	if err != nil {
		m.logger.Error().
			Int("player_id", entry.PlayerID).
			Str("game", game).
			Msg("queue entry references unknown player, dropping")
		return domain.Match{}, fmt.Errorf("%q: %w", game, domain.ErrNoOpponent)
	}
	if human.IsBot {
		queue.Requeue(entry)
		return domain.Match{}, fmt.Errorf("bot at queue front: %w", domain.ErrNoOpponent)
	}
	if human.InMatch {
		m.logger.Error().
			Int("player_id", human.ID).
			Str("game", game).
			Msg("in-match player at queue front, dropping stale entry")
		human.InQueue = false
		if err := m.players.Update(human); err != nil {
			return domain.Match{}, err
		}
		return domain.Match{}, fmt.Errorf("player %d already in match: %w", human.ID, domain.ErrNoOpponent)
	}

	if err := m.rankSvc.RemoveFromRanking(human.ID, human.Rating, game); err != nil {
		return domain.Match{}, err
	}

	botID, ok := m.findClosestBotOpponent(human.ID, human.Rating, game)
	if !ok {
		if err := m.rankSvc.AddToRanking(human.ID, game); err != nil {
			return domain.Match{}, err
		}
		queue.Requeue(entry)
		return domain.Match{}, fmt.Errorf("no bot for player %d: %w", human.ID, domain.ErrNoOpponent)
	}

	return m.createMatchBetween(human.ID, botID, game)
}

// findClosestHumanOpponent asks the skill index for the nearest entry
// belonging to a queued human.
func (m *Matchmaker) findClosestHumanOpponent(playerID int, game string) (int, bool) {
	opponentID, err := m.rankSvc.FindClosestQueuedHuman(playerID, game)
	if err != nil {
		return 0, false
	}
	return opponentID, true
}

// findClosestBotOpponent picks the closest-rated idle bot that is not
// in the player's recent-opponent window. If every idle bot was played
// recently, the absolute closest wins; a pool smaller than the window
// must not deadlock.
func (m *Matchmaker) findClosestBotOpponent(humanID, targetRating int, game string) (int, bool) {
	roster := m.bots[game]
	if len(roster) == 0 {
		return 0, false
	}
	human, err := m.players.Get(humanID)
	if err != nil {
		return 0, false
	}

	bestID, fallbackID := 0, 0
	bestDiff, fallbackDiff := math.MaxInt, math.MaxInt

	for _, botID := range roster {
		bot, err := m.players.Get(botID)
		if err != nil {
			m.logger.Error().
				Int("player_id", botID).
				Str("game", game).
				Msg("bot roster references unknown player, skipping")
			continue
		}
		if bot.InMatch {
			continue
		}

		diff := bot.Rating - targetRating
		if diff < 0 {
			diff = -diff
		}
		if diff < fallbackDiff {
			fallbackDiff = diff
			fallbackID = botID
		}
		if human.WasRecentOpponent(botID) {
			continue
		}
		if diff < bestDiff {
			bestDiff = diff
			bestID = botID
		}
	}

	if bestID == 0 {
		if fallbackID == 0 {
			return 0, false
		}
		m.logger.Info().
			Int("player_id", humanID).
			Str("game", game).
			Msg("all bots recently played, using absolute closest")
		return fallbackID, true
	}
	return bestID, true
}

// createMatchBetween records the pairing, flips both participants to
// in-match, and pushes the opponent onto each human's rotation window.
func (m *Matchmaker) createMatchBetween(player1ID, player2ID int, game string) (domain.Match, error) {
	player1, err := m.players.Get(player1ID)
	if err != nil {
		return domain.Match{}, err
	}
	player2, err := m.players.Get(player2ID)
	if err != nil {
		return domain.Match{}, err
	}

	if !player1.IsBot {
		player1.AddRecentOpponent(player2ID)
	}
	if !player2.IsBot {
		player2.AddRecentOpponent(player1ID)
	}

	match := m.matches.Create(player1ID, player2ID, game)

	player1.InQueue = false
	player1.InMatch = true
	if err := m.players.Update(player1); err != nil {
		return domain.Match{}, err
	}
	player2.InQueue = false
	player2.InMatch = true
	if err := m.players.Update(player2); err != nil {
		return domain.Match{}, err
	}

	diff := player1.Rating - player2.Rating
	if diff < 0 {
		diff = -diff
	}
	m.logger.Info().
		Int("match_id", match.ID).
		Str("game", game).
		Str("player1", player1.Name).
		Str("player2", player2.Name).
		Int("rating_diff", diff).
		Msg("match created")

	return match, nil
}

// ProcessMatchmaking drains the queue while at least two players wait.
// A lone player is only bot-matched on their own join attempt.
func (m *Matchmaker) ProcessMatchmaking(game string) int {
	created := 0
	for m.QueueSize(game) >= 2 {
		if _, err := m.TryCreateMatch(game); err != nil {
			break
		}
		created++
	}
	return created
}

// SubmitMatchResult completes the match, applies the ELO update,
// records history and releases both players back to availability. The
// players return to the skill index but not to the wait queue.
func (m *Matchmaker) SubmitMatchResult(matchID, winnerID int) (int, int, error) {
	match, err := m.matches.Get(matchID)
	if err != nil {
		return 0, 0, err
	}
	if match.IsCompleted {
		return 0, 0, fmt.Errorf("match %d: %w", matchID, domain.ErrMatchCompleted)
	}
	if !match.HasParticipant(winnerID) {
		return 0, 0, fmt.Errorf("player %d in match %d: %w", winnerID, matchID, domain.ErrNotParticipant)
	}

	loserID := match.OpponentOf(winnerID)
	match.WinnerID = winnerID
	match.IsCompleted = true
	if err := m.matches.Update(match); err != nil {
		return 0, 0, err
	}

	winnerRating, loserRating, err := m.rankSvc.UpdateRankings(winnerID, loserID, match.Game)
	if err != nil {
		return 0, 0, err
	}

	if err := m.history.Record(match); err != nil {
		return 0, 0, err
	}

	for _, playerID := range []int{winnerID, loserID} {
		player, err := m.players.Get(playerID)
		if err != nil {
			return 0, 0, err
		}
		player.InMatch = false
		if err := m.players.Update(player); err != nil {
			return 0, 0, err
		}
		if err := m.rankSvc.AddToRanking(playerID, match.Game); err != nil {
			return 0, 0, err
		}
	}

	m.logger.Info().
		Int("match_id", matchID).
		Int("winner_id", winnerID).
		Int("winner_rating", winnerRating).
		Int("loser_rating", loserRating).
		Msg("match result recorded")

	return winnerRating, loserRating, nil
}

func (m *Matchmaker) QueueSize(game string) int {
	queue, ok := m.queues[game]
	if !ok {
		return 0
	}
	return queue.Size()
}

func (m *Matchmaker) InQueue(playerID int, game string) bool {
	queue, ok := m.queues[game]
	return ok && queue.Contains(playerID)
}
