package fx

import (
	"arcade-arena/internal/config"
	"arcade-arena/internal/engine"
	"arcade-arena/internal/logger"
	"arcade-arena/internal/metrics"
	"arcade-arena/internal/repository"
	"arcade-arena/internal/server"
	"arcade-arena/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(metrics.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewHistoryRepository),
	// svc
	fx.Provide(service.NewRankingService),
	fx.Provide(service.NewMatchmaker),
	// engine facade
	fx.Provide(engine.New),
	// server
	fx.Provide(server.NewArenaServer),
)
