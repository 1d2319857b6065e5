package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/api/handlers"
	"github.com/maheshrc27/socialsync/internal/api/middleware"
	"github.com/maheshrc27/socialsync/internal/cache"
	job "github.com/maheshrc27/socialsync/internal/jobs"
	"github.com/maheshrc27/socialsync/internal/platform"
	"github.com/maheshrc27/socialsync/internal/queue"
	"github.com/maheshrc27/socialsync/internal/repository"
	"github.com/maheshrc27/socialsync/internal/service"
	"github.com/maheshrc27/socialsync/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	cipher, err := utils.NewCipher(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("Failed to set up token encryption: %v", err)
	}

	// Redis backs the refresh lease and handshake store. Without it the
	// handshakes live in memory and refreshes are not coordinated.
	var (
		lease      service.Lease
		handshakes service.HandshakeStore = cache.NewMemoryHandshakeStore()
	)
	rdb, err := cache.Connect(context.Background(), cfg.RedisURI)
	if err != nil {
		log.Printf("Redis unavailable, running without refresh lease: %v", err)
	} else {
		defer rdb.Close()
		lease = cache.NewRefreshLease(rdb, cfg.RefreshLeaseTTL)
		handshakes = cache.NewRedisHandshakeStore(rdb)
	}

	redisConn := redisClientOpt(cfg.RedisURI)
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Workspace-ID",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	registry := newRegistry(cfg)

	accountRepo := repository.NewSocialAccountRepository(db)
	pageRepo := repository.NewSocialPageRepository(db)
	postRepo := repository.NewPostRepository(db)
	historyRepo := repository.NewPostingHistoryRepository(db)

	r2Service, err := service.NewR2Service(context.Background(), cfg.R2)
	if err != nil {
		log.Fatalf("Failed to set up media storage: %v", err)
	}

	scheduler := queue.NewScheduler(client, inspector)
	tokenService := service.NewTokenService(accountRepo, pageRepo, registry, cipher, lease)
	connectorService := service.NewConnectorService(*cfg, accountRepo, pageRepo, registry, cipher, handshakes)
	publishService := service.NewPublishService(postRepo, pageRepo, historyRepo, tokenService, registry, cfg.PublishConcurrency)
	scheduleService := service.NewScheduleService(postRepo, scheduler)
	contentService := service.NewContentService(postRepo, r2Service)
	platformService := service.NewPlatformService(accountRepo, pageRepo, tokenService, registry)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	handlers.RegisterRoutes(app, authMiddleware.AuthMiddleware(),
		handlers.NewConnectHandler(connectorService, *cfg),
		handlers.NewPlatformHandler(platformService, connectorService, publishService),
		handlers.NewPostHandler(publishService, scheduleService, contentService),
	)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(pageRepo, tokenService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()
	defer c.Stop()

	//queue
	queueW := queue.NewQueue(publishService)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		queueW.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, server)
}

// newRegistry builds one adapter per platform and connection method.
func newRegistry(cfg *config.Config) *platform.Registry {
	opts := []platform.Option{platform.WithRateLimit(cfg.PlatformRateLimit, 5)}

	// Instagram through Facebook Login uses the Facebook app with the
	// Instagram callback.
	igViaFacebook := config.OAuthClient{
		ClientID:     cfg.Facebook.ClientID,
		ClientSecret: cfg.Facebook.ClientSecret,
		RedirectURI:  cfg.Instagram.RedirectURI,
	}

	return platform.NewRegistry(
		platform.NewInstagram(cfg.Instagram, opts...),
		platform.NewInstagramViaFacebook(igViaFacebook, opts...),
		platform.NewFacebook(cfg.Facebook, opts...),
		platform.NewTikTok(cfg.Tiktok, opts...),
		platform.NewYouTube(cfg.Youtube, opts...),
		platform.NewLinkedIn(cfg.Linkedin, opts...),
		platform.NewPinterest(cfg.Pinterest, opts...),
		platform.NewGoogleBusiness(cfg.GoogleBusiness, opts...),
	)
}

func redisClientOpt(uri string) asynq.RedisConnOpt {
	if opt, err := asynq.ParseRedisURI(uri); err == nil {
		return opt
	}
	return asynq.RedisClientOpt{Addr: uri}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
