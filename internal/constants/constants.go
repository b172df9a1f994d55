package constants

import "time"

const (
	InitialRating = 1000
	KFactor       = 32
)

const (
	BotsPerGame  = 5
	BotRatingMin = 800
	BotRatingMax = 1600
)

const (
	LeaderboardLimit = 20
	HistoryLimit     = 50
)

const (
	MatchSweepInterval = 2 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)
