package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/api/handlers"
	"github.com/maheshrc27/socialflow/internal/api/middleware"
	job "github.com/maheshrc27/socialflow/internal/jobs"
	"github.com/maheshrc27/socialflow/internal/platform"
	"github.com/maheshrc27/socialflow/internal/queue"
	"github.com/maheshrc27/socialflow/internal/repository"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	registry := buildRegistry(cfg)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postingHistoryRepo := repository.NewPostingHistoryRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	settingsRepository := repository.NewSettingsRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)
	stateStore := repository.NewOAuthStateStore(rdb)
	snapshotCache := repository.NewSnapshotCache(rdb)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo, socialAccountRepo)
	r2Service := service.NewR2Service(*cfg)
	tokenService := service.NewTokenService(*cfg, socialAccountRepo, registry)
	mediaService := service.NewMediaService(mediaAssetRepo, r2Service)
	postService := service.NewPostService(db, postRepo, mediaAssetRepo, socialAccountRepo, postMediaRepo, postingHistoryRepo, r2Service)
	publishService := service.NewPublishService(postRepo, socialAccountRepo, postingHistoryRepo, mediaAssetRepo, mediaService, tokenService, registry)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo, stateStore)
	competitorService := service.NewCompetitorService(*cfg, socialAccountRepo, tokenService, snapshotCache, registry)
	analysisService := service.NewAnalysisService(analysisRepo, competitorService, service.NewAIClient(cfg.AI))
	engagementService := service.NewEngagementService(socialAccountRepo, engagementRepo, tokenService, registry)
	settingsService := service.NewSettingsService(settingsRepository)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	// The OAuth state is stored server side with the user id, so the
	// callback route works without a session cookie.
	platformH := handlers.NewPlatformHandler(platformService, *cfg)
	app.Get("/auth/callback", platformH.CallbackHandler)
	app.Get("/auth/:platform", authMiddleware.AuthMiddleware(), platformH.AddSocialAccount)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(*cfg, userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, publishService, client)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/publish", post.PublishPost)
	api.Get("/posts/history", post.PostHistory)
	api.Post("/posts/remove", post.RemovePost)

	// social accounts api routes
	api.Get("/accounts", platformH.ListSocialAccounts)
	api.Post("/accounts/remove", platformH.DeleteSocialAccount)

	engagement := handlers.NewEngagementHandler(engagementService)
	api.Get("/accounts/engagement", engagement.SyncEngagement)
	api.Get("/accounts/engagement/history", engagement.EngagementHistory)

	competitors := handlers.NewCompetitorHandler(analysisService)
	api.Post("/competitors/analyze", competitors.Analyze)
	api.Get("/competitors/results", competitors.ListResults)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenService)
	publishDueJob := job.NewPublishDueJob(postRepo, client)

	//queue
	queueW := queue.NewQueue(publishService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 00h01m00s", publishDueJob.EnqueueDuePosts)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

// buildRegistry wires an adapter for every platform whose credentials are
// actually present. Unconfigured platforms are left out so calls against
// them fail fast with a config error instead of a doomed network call.
func buildRegistry(cfg *config.Config) *platform.Registry {
	registry := platform.NewRegistry()

	if cfg.Twitter.Configured() {
		registry.Register(platform.NewTwitterAdapter(cfg.Twitter.ClientID, cfg.Twitter.ClientSecret))
	}
	if cfg.Instagram.Configured() {
		registry.Register(platform.NewInstagramAdapter(cfg.Instagram.ClientSecret))
	}
	if cfg.YouTube.Configured() {
		registry.Register(platform.NewYouTubeAdapter(cfg.YouTube.ClientID, cfg.YouTube.ClientSecret, cfg.YouTubeAPIKey))
	}
	if cfg.LinkedIn.Configured() {
		registry.Register(platform.NewLinkedInAdapter(cfg.LinkedIn.ClientID, cfg.LinkedIn.ClientSecret))
	}
	if cfg.Facebook.Configured() {
		registry.Register(platform.NewFacebookAdapter(cfg.Facebook.ClientID, cfg.Facebook.ClientSecret))
	}

	return registry
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
