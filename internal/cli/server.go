package cli

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quizhub/internal/app"
	"quizhub/internal/config"
	"quizhub/internal/infra/memory"
	"quizhub/internal/infra/postgres"
	infraredis "quizhub/internal/infra/redis"
	transport "quizhub/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz platform server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	storeTimeout := config.TTLDuration(cfg.Store.Timeout, 5*time.Second)
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, time.Hour)

	var (
		quizStore    app.QuizStore
		userStore    app.UserStore
		contestStore app.ContestStore
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		store := postgres.NewStore(postgres.Connect(cfg.Postgres.URL), storeTimeout)
		quizStore, userStore, contestStore = store, store, store
	} else {
		log.Printf("no postgres url configured, using in-memory store")
		store := memory.NewStore()
		quizStore, userStore, contestStore = store, store, store
	}

	var denylist app.TokenDenylist
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		denylist = infraredis.NewTokenDenylist(client)
	} else {
		log.Printf("no redis addr configured, token revocation is process-local")
		denylist = memory.NewDenylist()
	}

	quizService := app.NewQuizService(quizStore, cfg.Quiz.AllowRetake)
	contestService := app.NewContestService(contestStore)
	authService := app.NewAuthService(userStore, denylist, cfg.Auth.JWTSecret, tokenTTL)

	handler := transport.NewHandler(quizService, contestService, authService)
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quizhub server on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
