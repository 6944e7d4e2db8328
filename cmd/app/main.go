package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gaming-rewards-backend/internal/common/cache"
	"gaming-rewards-backend/internal/common/config"
	"gaming-rewards-backend/internal/common/logger"
	"gaming-rewards-backend/internal/common/middleware"
	fraudService "gaming-rewards-backend/internal/features/fraud/service"
	oracleHTTP "gaming-rewards-backend/internal/features/oracle/delivery/http"
	oracleRepo "gaming-rewards-backend/internal/features/oracle/repository/memory"
	oracleService "gaming-rewards-backend/internal/features/oracle/service"
	stakingHTTP "gaming-rewards-backend/internal/features/staking/delivery/http"
	stakingService "gaming-rewards-backend/internal/features/staking/service"
	treasuryHTTP "gaming-rewards-backend/internal/features/treasury/delivery/http"
	treasuryRepo "gaming-rewards-backend/internal/features/treasury/repository/memory"
	treasuryService "gaming-rewards-backend/internal/features/treasury/service"
	verificationHTTP "gaming-rewards-backend/internal/features/verification/delivery/http"
	"gaming-rewards-backend/internal/features/verification/provider"
	verificationRepo "gaming-rewards-backend/internal/features/verification/repository/memory"
	verificationService "gaming-rewards-backend/internal/features/verification/service"
	walletRedisRepo "gaming-rewards-backend/internal/features/walletproof/repository/redis"
	walletService "gaming-rewards-backend/internal/features/walletproof/service"
	"gaming-rewards-backend/internal/platform/redis"
	"gaming-rewards-backend/internal/platform/ton"
	"gaming-rewards-backend/internal/platform/zkverifier"
	"gaming-rewards-backend/internal/workers"
)

// @title           Gaming Rewards API
// @version         1.0
// @description     Verification and treasury backend for gaming reward distribution.

// @host      localhost:8080
// @BasePath  /api/v1

// @tag.name verification
// @tag.description Proof pillars and the consolidated trust score

// @tag.name treasury
// @tag.description Yield harvesting and reward claims

// @tag.name oracles
// @tag.description Attestor registry, staking and slashing

// @tag.name staking
// @tag.description Reward staking positions

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("gaming-rewards-backend", cfg.Debug)

	rdb, err := redis.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis open")
	}
	defer rdb.Close()

	// The chain substrate is optional: without a wallet seed the service
	// runs against an in-memory substrate, which is enough for staging.
	var substrate ton.Substrate
	if cfg.Ton.WalletSeed != "" {
		client, err := ton.Connect(ctx, cfg.Ton.ConfigURL, cfg.Ton.WalletSeed)
		if err != nil {
			logger.Fatal().Err(err).Msg("ton connect")
		}
		substrate = client
	} else {
		logger.Warn().Msg("no wallet seed configured, using in-memory substrate")
		substrate = ton.NewMemorySubstrate()
	}

	limiter := fraudService.NewLimiter(cfg.Limits.RateWindow, cfg.Limits.RateCeiling, cfg.Limits.DenylistPatterns)

	oracles := oracleService.NewService(oracleRepo.NewRepository(), cfg.Limits.MinOracleStake, cfg.Limits.MaxOracleStake)

	wallets := walletService.NewService(walletRedisRepo.NewRepository(rdb.Client), substrate, cfg.Limits.MaxVerificationAge)

	cacheSvc := cache.NewService(rdb.Client)
	achievements := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIToken, cfg.Provider.Timeout, cacheSvc, cfg.Provider.CacheTTL)
	verifier := zkverifier.NewClient(cfg.Verifier.BaseURL, cfg.Verifier.Timeout)

	verification := verificationService.NewService(
		verificationRepo.NewRepository(),
		oracles,
		wallets,
		limiter,
		verifier,
		achievements,
		substrate,
		cfg.Limits,
		cfg.Verifier.Timeout,
		cfg.Ton.QualifyingJetton,
	)

	treasury := treasuryService.NewService(
		treasuryRepo.NewRepository("treasury-authority"),
		verification,
		limiter,
		substrate,
		treasuryService.NewStreamEvents(rdb.Client),
		cfg.Limits,
	)

	staking := stakingService.NewService(cfg.Limits.MinStakingPeriod, cfg.Limits.MaxStakingPeriod)

	fraudWorker := workers.NewFraudReportWorker(rdb, oracles, verification)
	go fraudWorker.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	verificationHTTP.NewVerificationHandler(verification, wallets).RegisterRoutes(api)
	treasuryHTTP.NewTreasuryHandler(treasury).RegisterRoutes(api)
	oracleHTTP.NewOracleHandler(oracles, rdb).RegisterRoutes(api)
	stakingHTTP.NewStakingHandler(staking).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server stopped")
}
