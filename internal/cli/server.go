package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
	pgsource "quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	transport "quiz-session-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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
	sessionTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var source app.QuestionSource = memory.NewStaticSource(sampleQuestions())
	if pool != nil {
		source = pgsource.NewSource(pool)
	}

	questionsTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		source = redisinfra.NewSource(redisClient, source, questionsTTL)
	} else {
		source = memory.NewCachingSource(source, questionsTTL)
	}
	repo := app.NewRepository(source)

	var sessions transport.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, repo, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(repo)
	}
	wsHandler := transport.NewWSHandler(sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions provides a small fixed question set; the Postgres source
// replaces this in production.
func sampleQuestions() []domain.RawRecord {
	return []domain.RawRecord{
		{
			"id":           1,
			"text":         "What is the capital of France?",
			"options":      []string{"Berlin", "Madrid", "Paris", "Rome"},
			"correctIndex": 2,
		},
		{
			"id":           2,
			"text":         "Which planet is known as the Red Planet?",
			"options":      []string{"Venus", "Mars", "Jupiter", "Saturn"},
			"correctIndex": 1,
		},
		{
			"id":           3,
			"text":         "What is 7 x 8?",
			"options":      []string{"54", "56", "63", "64"},
			"correctIndex": 1,
		},
		{
			"id":           4,
			"text":         "Who wrote 'Romeo and Juliet'?",
			"options":      []string{"Charles Dickens", "Jane Austen", "Mark Twain", "William Shakespeare"},
			"correctIndex": 3,
		},
	}
}
