package service

import (
	"testing"

	"arcade-arena/internal/domain"
	"arcade-arena/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type matchmakerFixture struct {
	players    *repository.PlayerRepository
	matches    *repository.MatchRepository
	history    *repository.HistoryRepository
	rankSvc    *RankingService
	matchmaker *Matchmaker
}

func newMatchmakerFixture(t *testing.T) *matchmakerFixture {
	t.Helper()
	logger := zerolog.Nop()
	players := repository.NewPlayerRepository(logger)
	matches := repository.NewMatchRepository(logger)
	history := repository.NewHistoryRepository(logger)
	rankSvc := NewRankingService(players, logger)
	return &matchmakerFixture{
		players:    players,
		matches:    matches,
		history:    history,
		rankSvc:    rankSvc,
		matchmaker: NewMatchmaker(players, matches, history, rankSvc, logger),
	}
}

func (f *matchmakerFixture) addHuman(t *testing.T, name string, rating int) domain.Player {
	t.Helper()
	return f.players.Create(name, rating, false)
}

func (f *matchmakerFixture) addBot(t *testing.T, name string, rating int, game string) domain.Player {
	t.Helper()
	bot := f.players.Create(name, rating, true)
	require.NoError(t, f.matchmaker.RegisterBot(bot.ID, game))
	require.NoError(t, f.rankSvc.AddToRanking(bot.ID, game))
	return bot
}

func TestJoinQueueStateChecks(t *testing.T) {
	f := newMatchmakerFixture(t)

	err := f.matchmaker.JoinQueue(99, domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	alice := f.addHuman(t, "alice", 1000)
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))

	err = f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrAlreadyQueued)

	err = f.matchmaker.JoinQueue(alice.ID, "chess")
	assert.ErrorIs(t, err, domain.ErrAlreadyQueued)
}

func TestJoinQueueTracksStateAndRanking(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GameSnake))

	updated, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.True(t, updated.InQueue)
	assert.Equal(t, domain.GameSnake, updated.PreferredGame)
	assert.Equal(t, 1, f.matchmaker.QueueSize(domain.GameSnake))
	assert.Equal(t, 1, f.rankSvc.RankingCount(domain.GameSnake))
}

func TestLeaveQueue(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)

	err := f.matchmaker.LeaveQueue(alice.ID, domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrNotQueued)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.LeaveQueue(alice.ID, domain.GamePingpong))

	updated, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.False(t, updated.InQueue)
	assert.Equal(t, 0, f.matchmaker.QueueSize(domain.GamePingpong))
	assert.Equal(t, 0, f.rankSvc.RankingCount(domain.GamePingpong))
}

func TestPairsClosestWaitingHumans(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1020)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.JoinQueue(bob.ID, domain.GamePingpong))

	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)
	assert.True(t, match.HasParticipant(alice.ID))
	assert.True(t, match.HasParticipant(bob.ID))
	assert.Equal(t, 0, f.matchmaker.QueueSize(domain.GamePingpong))

	for _, id := range []int{alice.ID, bob.ID} {
		p, err := f.players.Get(id)
		require.NoError(t, err)
		assert.True(t, p.InMatch)
		assert.False(t, p.InQueue)
	}
}

func TestSubmitResultCompletesLifecycle(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1020)
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.JoinQueue(bob.ID, domain.GamePingpong))
	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)

	winnerRating, loserRating, err := f.matchmaker.SubmitMatchResult(match.ID, alice.ID)
	require.NoError(t, err)
	assert.Greater(t, winnerRating, 1000)
	assert.Less(t, loserRating, 1020)

	completed, err := f.matches.Get(match.ID)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	assert.Equal(t, alice.ID, completed.WinnerID)

	assert.Equal(t, 1, f.history.Count(alice.ID))
	assert.Equal(t, 1, f.history.Count(bob.ID))

	// Both back to availability: in the index, but not in the queue.
	for _, id := range []int{alice.ID, bob.ID} {
		p, err := f.players.Get(id)
		require.NoError(t, err)
		assert.False(t, p.InMatch)
		assert.False(t, p.InQueue)
	}
	assert.Equal(t, 2, f.rankSvc.RankingCount(domain.GamePingpong))
	assert.Equal(t, 0, f.matchmaker.QueueSize(domain.GamePingpong))
}

func TestSubmitResultValidation(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1020)
	carol := f.addHuman(t, "carol", 1100)
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GameTank))
	require.NoError(t, f.matchmaker.JoinQueue(bob.ID, domain.GameTank))
	match, err := f.matchmaker.TryCreateMatch(domain.GameTank)
	require.NoError(t, err)

	_, _, err = f.matchmaker.SubmitMatchResult(999, alice.ID)
	assert.ErrorIs(t, err, domain.ErrMatchNotFound)

	_, _, err = f.matchmaker.SubmitMatchResult(match.ID, carol.ID)
	assert.ErrorIs(t, err, domain.ErrNotParticipant)

	_, _, err = f.matchmaker.SubmitMatchResult(match.ID, alice.ID)
	require.NoError(t, err)

	// Resubmission fails and the winner stays unchanged.
	_, _, err = f.matchmaker.SubmitMatchResult(match.ID, bob.ID)
	assert.ErrorIs(t, err, domain.ErrMatchCompleted)

	completed, err := f.matches.Get(match.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, completed.WinnerID)
	assert.Equal(t, 1, f.history.Count(alice.ID))
}

func TestPrefersWaitingHumanOverCloserBot(t *testing.T) {
	f := newMatchmakerFixture(t)
	f.addBot(t, "BOT_1", 1010, domain.GamePingpong)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1100)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.JoinQueue(bob.ID, domain.GamePingpong))

	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)
	assert.True(t, match.HasParticipant(alice.ID))
	assert.True(t, match.HasParticipant(bob.ID))
}

func TestDoesNotPoachPlayerQueuedForAnotherGame(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1010)
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.JoinQueue(bob.ID, domain.GamePingpong))
	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)
	_, _, err = f.matchmaker.SubmitMatchResult(match.ID, alice.ID)
	require.NoError(t, err)

	// Alice keeps her pingpong index entry but now waits for snake.
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GameSnake))

	carol := f.addHuman(t, "carol", 1020)
	dave := f.addHuman(t, "dave", 1200)
	require.NoError(t, f.matchmaker.JoinQueue(carol.ID, domain.GamePingpong))
	require.NoError(t, f.matchmaker.JoinQueue(dave.ID, domain.GamePingpong))

	second, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)
	assert.False(t, second.HasParticipant(alice.ID))
	assert.True(t, second.HasParticipant(carol.ID))
	assert.True(t, second.HasParticipant(dave.ID))

	// Alice's snake spot is untouched.
	assert.True(t, f.matchmaker.InQueue(alice.ID, domain.GameSnake))
	assert.Equal(t, 1, f.matchmaker.QueueSize(domain.GameSnake))
	player, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.True(t, player.InQueue)
	assert.False(t, player.InMatch)
}

func TestInMatchPlayerAtQueueFrontIsDropped(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)
	bob := f.addHuman(t, "bob", 1010)
	carol := f.addHuman(t, "carol", 1020)
	for _, id := range []int{alice.ID, bob.ID, carol.ID} {
		require.NoError(t, f.matchmaker.JoinQueue(id, domain.GamePingpong))
	}

	// Force the divergent state: queued while already in a match.
	stale, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	stale.InMatch = true
	require.NoError(t, f.players.Update(stale))

	_, err = f.matchmaker.TryCreateMatch(domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrNoOpponent)
	assert.Equal(t, 2, f.matchmaker.QueueSize(domain.GamePingpong))

	dropped, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.False(t, dropped.InQueue)

	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)
	assert.False(t, match.HasParticipant(alice.ID))
	assert.True(t, match.HasParticipant(bob.ID))
	assert.True(t, match.HasParticipant(carol.ID))
}

func TestSoloPlayerMatchedWithBot(t *testing.T) {
	f := newMatchmakerFixture(t)
	bot := f.addBot(t, "BOT_1", 1050, domain.GamePingpong)
	alice := f.addHuman(t, "alice", 1000)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)

	assert.True(t, match.HasParticipant(alice.ID))
	assert.True(t, match.HasParticipant(bot.ID))

	updatedBot, err := f.players.Get(bot.ID)
	require.NoError(t, err)
	assert.True(t, updatedBot.InMatch)

	updatedAlice, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.True(t, updatedAlice.WasRecentOpponent(bot.ID))
	assert.False(t, updatedBot.WasRecentOpponent(alice.ID))
}

func TestBotRotationSkipsRecentOpponent(t *testing.T) {
	f := newMatchmakerFixture(t)
	near := f.addBot(t, "BOT_1", 1000, domain.GamePingpong)
	far := f.addBot(t, "BOT_2", 1400, domain.GamePingpong)
	alice := f.addHuman(t, "alice", 1000)

	player, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	player.AddRecentOpponent(near.ID)
	require.NoError(t, f.players.Update(player))

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)

	assert.True(t, match.HasParticipant(far.ID))
}

func TestBotRotationFallsBackWhenAllRecent(t *testing.T) {
	f := newMatchmakerFixture(t)
	near := f.addBot(t, "BOT_1", 1000, domain.GamePingpong)
	far := f.addBot(t, "BOT_2", 1400, domain.GamePingpong)
	alice := f.addHuman(t, "alice", 1000)

	player, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	player.AddRecentOpponent(near.ID)
	player.AddRecentOpponent(far.ID)
	require.NoError(t, f.players.Update(player))

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	match, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	require.NoError(t, err)

	// Deadlock prevention: the absolute closest bot wins.
	assert.True(t, match.HasParticipant(near.ID))
}

func TestNoBotAvailableRequeuesPlayer(t *testing.T) {
	f := newMatchmakerFixture(t)
	alice := f.addHuman(t, "alice", 1000)

	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))
	_, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrNoOpponent)

	// The failed attempt must leave the player fully queued.
	assert.Equal(t, 1, f.matchmaker.QueueSize(domain.GamePingpong))
	assert.Equal(t, 1, f.rankSvc.RankingCount(domain.GamePingpong))
	player, err := f.players.Get(alice.ID)
	require.NoError(t, err)
	assert.True(t, player.InQueue)
	assert.False(t, player.InMatch)
}

func TestBusyBotsAreSkipped(t *testing.T) {
	f := newMatchmakerFixture(t)
	bot := f.addBot(t, "BOT_1", 1000, domain.GamePingpong)

	busy, err := f.players.Get(bot.ID)
	require.NoError(t, err)
	busy.InMatch = true
	require.NoError(t, f.players.Update(busy))

	alice := f.addHuman(t, "alice", 1000)
	require.NoError(t, f.matchmaker.JoinQueue(alice.ID, domain.GamePingpong))

	_, err = f.matchmaker.TryCreateMatch(domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrNoOpponent)
}

func TestProcessMatchmakingDrainsQueue(t *testing.T) {
	f := newMatchmakerFixture(t)
	for _, spec := range []struct {
		name   string
		rating int
	}{
		{"alice", 1000},
		{"bob", 1010},
		{"carol", 1200},
		{"dave", 1210},
	} {
		p := f.addHuman(t, spec.name, spec.rating)
		require.NoError(t, f.matchmaker.JoinQueue(p.ID, domain.GameSnake))
	}

	created := f.matchmaker.ProcessMatchmaking(domain.GameSnake)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, f.matchmaker.QueueSize(domain.GameSnake))
}

func TestTryCreateMatchEmptyQueue(t *testing.T) {
	f := newMatchmakerFixture(t)
	_, err := f.matchmaker.TryCreateMatch(domain.GamePingpong)
	assert.ErrorIs(t, err, domain.ErrNoOpponent)

	_, err = f.matchmaker.TryCreateMatch("chess")
	assert.ErrorIs(t, err, domain.ErrUnknownGame)
}

func TestRecentOpponentWindowEvictsOldest(t *testing.T) {
	p := domain.Player{ID: 1}
	p.AddRecentOpponent(10)
	p.AddRecentOpponent(20)
	p.AddRecentOpponent(30)
	p.AddRecentOpponent(40)

	assert.False(t, p.WasRecentOpponent(10))
	assert.True(t, p.WasRecentOpponent(20))
	assert.True(t, p.WasRecentOpponent(30))
	assert.True(t, p.WasRecentOpponent(40))
}
