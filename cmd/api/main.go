package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/api"
	"github.com/maxicoach/backend/internal/api/handlers"
	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/cache/redis"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/chat/store"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/internal/middleware/ratelimit"
	"github.com/maxicoach/backend/internal/middleware/security"
	"github.com/maxicoach/backend/internal/middleware/validation"
	"github.com/maxicoach/backend/internal/speech"
	"github.com/maxicoach/backend/internal/storage/sqlite"
	"github.com/maxicoach/backend/pkg/config"
	appLogger "github.com/maxicoach/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(appLogger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Maxi-Coach API Server")
	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	library, err := loadKnowledge(cfg.Knowledge.Dir)
	if err != nil {
		appLogger.Fatal("Failed to load knowledge base", zap.Error(err))
	}

	users, err := auth.LoadDirectory(cfg.Auth.UsersFile)
	if err != nil {
		appLogger.Fatal("Failed to load users", zap.Error(err))
	}
	appLogger.Info("User directory loaded", zap.Int("users", users.Len()))

	sessionTTL := time.Duration(cfg.Session.TTLMinutes) * time.Minute
	var sessions chat.Store
	switch cfg.Session.Store {
	case "redis":
		sessions = store.NewRedisStore(redisClient, sessionTTL)
	default:
		sessions = store.NewMemoryStore(sessionTTL)
	}
	appLogger.Info("Session store selected", zap.String("store", cfg.Session.Store))

	var player *speech.Player
	var speaker handlers.Speaker
	if cfg.Speech.Enabled {
		player, err = newPlayer(cfg, redisClient)
		if err != nil {
			appLogger.Fatal("Failed to create speech player", zap.Error(err))
		}
		speaker = player
	}

	var stopper chat.SpeechStopper
	if player != nil {
		stopper = player
	}
	chatService := chat.NewService(library, sessions, sqliteClient, stopper)
	authService := auth.NewService(users, sqliteClient, cfg.Auth.ResetPassword, cfg.Auth.MinPassword)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	validate := handlers.NewValidator()

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		KeyFunc: func(c *fiber.Ctx) string {
			if name := auth.Username(c); name != "" {
				return "user:" + strings.ToLower(name)
			}
			return "ip:" + c.IP()
		},
		Logger: appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "X-Voice, X-Audio-Cached",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	deps := map[string]handlers.Pinger{"sqlite": sqliteClient}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	api.Register(app, api.Handlers{
		Auth:      handlers.NewAuthHandler(authService, chatService, tokens, validate),
		Session:   handlers.NewSessionHandler(chatService, validate),
		Chat:      handlers.NewChatHandler(chatService, validate, cfg.Chat.HistoryLimit),
		Speech:    handlers.NewSpeechHandler(chatService, speaker),
		WebSocket: handlers.NewWebSocketHandler(chatService, time.Duration(cfg.Chat.ThinkingDelayMs)*time.Millisecond, cfg.Validation.MaxMessageLength),
		Health:    handlers.NewHealthHandler(deps),
	}, api.Middleware{
		Auth:      auth.Middleware(tokens),
		RateLimit: limiter.Middleware(),
		Validation: validation.Middleware(validation.Config{
			MaxMessageLength: cfg.Validation.MaxMessageLength,
			Logger:           appLogger.GetLogger(),
		}),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Shutdown did not complete", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func loadKnowledge(dir string) (*knowledge.Library, error) {
	if dir == "" {
		return knowledge.LoadDefault()
	}
	appLogger.Info("Loading knowledge base from disk", zap.String("dir", dir))
	return knowledge.LoadDir(dir)
}

func newPlayer(cfg *config.Config, redisClient *redis.Client) (*speech.Player, error) {
	synth, err := speech.NewGeminiSynthesizer(
		context.Background(),
		cfg.Speech.APIKey,
		cfg.Speech.Model,
		time.Duration(cfg.Speech.TimeoutSec)*time.Second,
	)
	if err != nil {
		return nil, err
	}

	var cache speech.AudioCache
	if redisClient != nil {
		cache = redisClient
	}

	return speech.NewPlayer(
		synth,
		cache,
		time.Duration(cfg.Speech.CacheTTLMinutes)*time.Minute,
		speech.NewVoices(cfg.Speech.Voices, cfg.Speech.DefaultVoice),
		cfg.Speech.SampleRate,
	), nil
}
