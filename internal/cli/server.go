package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gauntlet-game-service/internal/app"
	"gauntlet-game-service/internal/auth"
	"gauntlet-game-service/internal/config"
	"gauntlet-game-service/internal/infra/memory"
	pgstore "gauntlet-game-service/internal/infra/postgres"
	redisinfra "gauntlet-game-service/internal/infra/redis"
	transport "gauntlet-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		teams     app.TeamStore
		progress  app.ProgressStore
		questions app.QuestionRepository
	)
	if pool != nil {
		teams = pgstore.NewTeamStore(pool)
		progress = pgstore.NewProgressStore(pool)
		questions = pgstore.NewQuestionStore(pool)
	} else {
		// Demo mode: everything in memory, seeded with the stock event data.
		log.Warn().Msg("postgres not configured, running with in-memory stores")
		demoTeams, err := seedTeamRecords()
		if err != nil {
			return err
		}
		teams = memory.NewTeamStore(demoTeams)
		progress = memory.NewProgressStore()
		questions = memory.NewStaticQuestionRepository(seedQuestions())
	}

	questionTTL := config.Duration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, questions, questionTTL)
	} else {
		questions = memory.NewCachedQuestionRepository(questions, questionTTL)
	}

	clock := clockwork.NewRealClock()
	budget := config.Duration(cfg.Game.Duration, app.DefaultBudget)
	tokenTTL := config.Duration(cfg.Auth.TokenTTL, 8*time.Hour)
	tokens := auth.NewManager(cfg.Auth.Secret, tokenTTL)

	gameService := app.NewGameService(progress, questions, clock, budget)
	leaderboardService := app.NewLeaderboardService(progress, clock)
	gameService.SetNotifier(leaderboardService)
	authService := app.NewAuthService(teams, progress, tokens, clock)

	handler := transport.NewHandler(authService, gameService, leaderboardService, tokens, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting game service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
