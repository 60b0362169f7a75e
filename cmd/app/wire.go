//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/ai-fitcoach/internal/bootstrap"
	"github.com/yanqian/ai-fitcoach/internal/domain/auth"
	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
	"github.com/yanqian/ai-fitcoach/internal/infra/config"
	httpiface "github.com/yanqian/ai-fitcoach/internal/interface/http"
	"github.com/yanqian/ai-fitcoach/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideCoachConfig,
		provideAuthConfig,
		provideGenerator,
		provideTokenEstimator,
		provideRepository,
		provideUsageCounter,
		provideObjectStorage,
		coach.NewService,
		auth.NewService,
		httpiface.NewCoachHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
