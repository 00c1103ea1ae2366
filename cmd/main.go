package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spinnernet/backend/internal/db"
	"github.com/spinnernet/backend/internal/discovery"
	"github.com/spinnernet/backend/internal/handlers"
	"github.com/spinnernet/backend/internal/middleware"
	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/envutil"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/platform/openai"
	"github.com/spinnernet/backend/internal/realtime"
	"github.com/spinnernet/backend/internal/realtime/bus"
	"github.com/spinnernet/backend/internal/repos"
	"github.com/spinnernet/backend/internal/server"
	"github.com/spinnernet/backend/internal/services"
	"github.com/spinnernet/backend/internal/store"
)

func main() {
	// Logger
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.Str("JWT_SECRET_KEY", "defaultsecret")
	accessTokenTTL := envutil.Int("ACCESS_TOKEN_TTL", 3600)
	refreshTokenTTL := envutil.Int("REFRESH_TOKEN_TTL", 86400)
	turnTimeout := time.Duration(envutil.Int("DISCOVERY_TURN_TIMEOUT_SECONDS", 120)) * time.Second

	// Observability
	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "spinnernet-backend",
		Environment: envutil.Str("ENVIRONMENT", "development"),
		Version:     envutil.Str("SERVICE_VERSION", "dev"),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}
	metrics.StartServer(ctx, log)

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(gdb, log)
	userTokenRepo := repos.NewUserTokenRepo(gdb, log)
	personaProfileRepo := repos.NewPersonaProfileRepo(gdb, log)

	// Conversation store
	conversations, err := store.NewRedisConversationStore(log)
	if err != nil {
		log.Warn("Redis conversation store unavailable; using in-memory store", "error", err)
		conversations = store.NewMemoryConversationStore()
	}

	// LLM client
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAI client", "error", err)
		os.Exit(1)
	}

	// Discovery
	log.Info("Setting up discovery services from main...")
	prompts := discovery.DefaultPrompts()
	if path := envutil.Str("DISCOVERY_PROMPTS_FILE", ""); path != "" {
		loaded, perr := discovery.LoadPrompts(path)
		if perr != nil {
			log.Warn("Prompt overrides failed to load; using defaults", "path", path, "error", perr)
		} else {
			prompts = loaded
		}
	}
	extractor := discovery.NewExtractor(log, openaiClient, personaProfileRepo, discovery.ExtractorConfig{})
	discoveryService := discovery.NewService(log, conversations, openaiClient, extractor, prompts, discovery.Config{})

	// Realtime
	log.Info("Setting up realtime hub from main...")
	hub := realtime.NewHub(log)
	var eventBus bus.Bus
	if b, berr := bus.NewRedisBus(log); berr != nil {
		log.Warn("Event bus unavailable; realtime events stay in-process", "error", berr)
	} else {
		eventBus = b
		defer eventBus.Close()
	}
	emitter := services.NewEventEmitter(log, hub, eventBus)
	notifier := services.NewDiscoveryNotifier(emitter)
	gateway := realtime.NewGateway(log, hub, discoveryService, notifier, turnTimeout)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(gdb, log, userRepo, userTokenRepo, jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(log, userRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	discoveryHandler := handlers.NewDiscoveryHandler(log, discoveryService, personaProfileRepo)
	wsHandler := handlers.NewWSHandler(log, gateway)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		UserHandler:      userHandler,
		DiscoveryHandler: discoveryHandler,
		WSHandler:        wsHandler,
		Metrics:          metrics,
	})

	port := envutil.Str("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if eventBus != nil {
		g.Go(func() error {
			return eventBus.StartForwarder(gctx, hub.Deliver)
		})
	}
	g.Go(func() error {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
	log.Info("Server stopped")
}
