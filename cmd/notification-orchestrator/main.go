// Trainee Notification Orchestrator
// ==================================
// Consumes programme/placement/GMC/LTFT domain events, decides and
// schedules trainee notifications, dispatches them through the transport
// SPI, and broadcasts their lifecycle to downstream consumers.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/dispatch"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/inapp"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ingest"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/resolve"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain/rules"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/consumer"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/directory"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/eligibility"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/identity"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/messaging"
	mongodbrepo "github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/persistence/mongodb"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/renderer"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/scheduler"
	"github.com/hee-tis/trainee-notifications/internal/trainee/infrastructure/transport"
	"github.com/hee-tis/trainee-notifications/pkg/config"
	"github.com/hee-tis/trainee-notifications/pkg/database"
	"github.com/hee-tis/trainee-notifications/pkg/events"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
	"github.com/hee-tis/trainee-notifications/pkg/middleware"
	"github.com/hee-tis/trainee-notifications/pkg/response"
	"github.com/hee-tis/trainee-notifications/pkg/tracer"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Caller: cfg.Logger.Caller,
	})
	log = log.With().Service(cfg.App.Name).Logger()
	logger.SetGlobal(log)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting trainee notification orchestrator")

	tr, err := tracer.New(&cfg.Tracer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracer")
	}
	defer tr.Close(context.Background())

	mongo, err := database.NewMongoDB(&cfg.MongoDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongo.Close(context.Background())

	redisClient, err := database.NewRedis(&cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	indexes := mongodbrepo.NewIndexManager(mongo.Database())
	if err := indexes.EnsureIndexes(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}

	histories := mongodbrepo.NewHistoryRepository(mongo.Database())
	jobs := mongodbrepo.NewJobRepository(mongo.Database())
	locks := mongodbrepo.NewProcessLockRepository(mongo.Database())

	publisher, err := messaging.NewRabbitMQPublisher(rabbitMQPublisherConfig(cfg), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect broadcast publisher")
	}
	defer publisher.Close()

	eventBus, err := events.NewRabbitMQEventBus(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ event bus")
	}
	defer eventBus.Close()

	identityClient := identity.NewClient(identity.Config{BaseURL: cfg.Services.ProfileBaseURL, Timeout: cfg.Services.Timeout})
	directoryClient := directory.NewCachedClient(
		directory.NewClient(directory.Config{BaseURL: cfg.Services.DirectoryBaseURL, Timeout: cfg.Services.Timeout}),
		redisClient,
		cfg.Redis.ContactTTL,
	)
	eligibilityClient := eligibility.NewClient(eligibility.Config{BaseURL: cfg.Services.EligibilityBaseURL, Timeout: cfg.Services.Timeout})
	rendererClient := renderer.NewClient(renderer.Config{BaseURL: cfg.Services.RendererBaseURL, Timeout: cfg.Services.Timeout})
	transportClient := transport.NewClient(transport.Config{BaseURL: cfg.Services.TransportBaseURL, Timeout: cfg.Services.Timeout})

	resolver := resolve.NewResolver(identityClient, identityClient)

	clock := ports.SystemClock{}
	notifier := inapp.NewNotifier(histories, publisher, clock)

	rulesConfig := buildRulesConfig(cfg)

	handlers := &ingest.Handlers{
		Histories: histories,
		Jobs:      jobs,
		InApp:     notifier,
		Contacts:  directoryClient,
		Clock:     clock,
		Config:    rulesConfig,
	}

	worker := &dispatch.Worker{
		Histories:        histories,
		Resolver:         resolver,
		Eligibility:      eligibilityClient,
		Renderer:         rendererClient,
		Transport:        transportClient,
		Broadcast:        publisher,
		Clock:            clock,
		TemplateVersions: buildTemplateVersions(cfg),
		DummyRoles:       rulesConfig.DummyRoles,
		Whitelist:        rulesConfig.WhitelistedPersonIDs,
	}

	hostname, _ := os.Hostname()
	ownerID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	sched, err := scheduler.New(jobs, histories, locks, worker, log, scheduler.DefaultConfig(ownerID))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	if err := sched.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	ingestConsumer := &consumer.Consumer{Handlers: handlers, Log: log}
	go func() {
		if err := eventBus.Subscribe(context.Background(), consumer.EventTypes, ingestConsumer.Handle); err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to inbound event queues")
		}
	}()

	mux := http.NewServeMux()

	startTime := time.Now()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]response.HealthCheck)

		if err := mongo.Health(r.Context()); err != nil {
			checks["mongodb"] = response.HealthCheck{Status: "unhealthy", Message: err.Error()}
		} else {
			checks["mongodb"] = response.HealthCheck{Status: "healthy"}
		}

		if publisher.IsConnected() {
			checks["broadcast"] = response.HealthCheck{Status: "healthy"}
		} else {
			checks["broadcast"] = response.HealthCheck{Status: "unhealthy", Message: "not connected"}
		}

		status := "healthy"
		for _, check := range checks {
			if check.Status != "healthy" {
				status = "unhealthy"
				break
			}
		}

		response.Health(w, status, Version, time.Since(startTime), checks)
	})

	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("# trainee notification orchestrator metrics\n"))
	})

	mux.HandleFunc("GET /api/v1/trainees/{id}/notifications", func(w http.ResponseWriter, r *http.Request) {
		traineeID := r.PathValue("id")
		rows, err := histories.FindUnread(r.Context(), traineeID)
		if err != nil {
			response.InternalError(w, err.Error())
			return
		}
		response.OK(w, rows)
	})

	rateLimiter := middleware.NewRedisRateLimiter(redisClient, middleware.RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		KeyFunc:  middleware.DefaultKeyFunc,
	})

	handler := middleware.Chain(
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Recover(log),
		middleware.ContentType("application/json"),
		middleware.RateLimit(rateLimiter, middleware.RateLimitConfig{Requests: 60, Window: time.Minute}),
	)(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP admin server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

func buildRulesConfig(cfg *config.Config) rules.Config {
	whitelist := make(map[string]struct{}, len(cfg.Trainee.WhitelistedPersonIDs))
	for _, id := range cfg.Trainee.WhitelistedPersonIDs {
		whitelist[id] = struct{}{}
	}
	dummyRoles := make(map[string]struct{}, len(cfg.Trainee.DummyRoles))
	for _, role := range cfg.Trainee.DummyRoles {
		dummyRoles[role] = struct{}{}
	}
	return rules.Config{
		Timezone:               cfg.Trainee.Location(),
		NotificationDelay:      time.Duration(cfg.Trainee.NotificationDelayMinutes) * time.Minute,
		DeferralMoreThanDays:   cfg.Trainee.DeferralMoreThanDays,
		PogCutoffWeeks:         cfg.Trainee.PogCutoffWeeks,
		Pog12MonthCutoffMonths: cfg.Trainee.Pog12MonthCutoffMonths,
		WhitelistedPersonIDs:   whitelist,
		DummyRoles:             dummyRoles,
	}
}

func buildTemplateVersions(cfg *config.Config) map[string]dispatch.TemplateVersion {
	out := make(map[string]dispatch.TemplateVersion, len(cfg.Trainee.TemplateVersions))
	for name, v := range cfg.Trainee.TemplateVersions {
		out[name] = dispatch.TemplateVersion{Email: v.Email, InApp: v.InApp}
	}
	return out
}

func rabbitMQPublisherConfig(cfg *config.Config) messaging.RabbitMQConfig {
	pc := messaging.DefaultRabbitMQConfig()
	pc.URL = cfg.RabbitMQ.URL
	pc.TopicARN = cfg.Trainee.Broadcast.TopicARN
	pc.EventAttribute = cfg.Trainee.Broadcast.EventAttribute
	if cfg.RabbitMQ.ReconnectDelay > 0 {
		pc.ReconnectDelay = cfg.RabbitMQ.ReconnectDelay
	}
	return pc
}
