package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-gateway/internal/auth"
	"voice-gateway/internal/calls"
	"voice-gateway/internal/config"
	"voice-gateway/internal/conversation"
	"voice-gateway/internal/events"
	"voice-gateway/internal/httpapi"
	"voice-gateway/internal/leads"
	"voice-gateway/internal/livefeed"
	"voice-gateway/internal/notify"
	"voice-gateway/internal/payments"
	"voice-gateway/internal/pipeline"
	"voice-gateway/internal/quota"
	"voice-gateway/internal/ratelimit"
	"voice-gateway/internal/reporting"
	"voice-gateway/internal/sentiment"
	"voice-gateway/internal/vapi"
	"voice-gateway/internal/webhook"
	"voice-gateway/pkg/logger"
	"voice-gateway/pkg/tracing"
	"voice-gateway/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, cfg.App.Version)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := tracing.Setup(rootCtx, tracing.Options{
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
		ServiceName:  "voice-gateway",
		Version:      cfg.App.Version,
		Env:          cfg.App.Env,
	})
	if err != nil {
		log.Error("tracing init failed", "err", err)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Side effects run on a fixed pool; failures land in a capped Redis list.
	tasks := pipeline.NewDispatcher(pipeline.Options{
		Workers:     cfg.Pipeline.Workers,
		QueueSize:   cfg.Pipeline.QueueSize,
		TaskTimeout: cfg.Pipeline.TaskTimeout,
	}, pipeline.NewRedisDeadLetters(rdb, "voice-gateway:dead-letters", 1000), log)
	tasks.Start()

	// Request logs outlive rootCtx so entries recorded while draining HTTP still flush.
	logCtx, stopLogs := context.WithCancel(context.Background())
	defer stopLogs()
	requestLogs := events.NewRequestLogWriter(events.NewPostgresRequestLogs(db), 1024, log)
	go requestLogs.Run(logCtx)

	var completer sentiment.ChatCompleter
	if cfg.OpenAI.APIKey != "" {
		oc := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			oc.BaseURL = cfg.OpenAI.BaseURL
		}
		completer = openai.NewClientWithConfig(oc)
	}
	classifier := sentiment.New(cfg.OpenAI.ClassifierMode, completer, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	responder := conversation.NewResponder(completer, cfg.OpenAI.Model, cfg.OpenAI.Timeout)

	notifier := notify.New(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, 10*time.Second)
	paymentLinks := payments.NewClient(cfg.Payments.BaseURL, cfg.Payments.SecretKey, 15*time.Second)
	provider := vapi.NewClient(cfg.Vapi.BaseURL, cfg.Vapi.APIKey, cfg.Vapi.Timeout)
	feed := livefeed.NewRedisFeed(rdb)

	callRepo := calls.NewPostgresRepo(db)
	leadRepo := leads.NewPostgresRepo(db)
	effects := leads.NewEffects(leadRepo, notifier, paymentLinks, leads.PaymentOptions{
		Amount:      cfg.Payments.Amount,
		Currency:    cfg.Payments.Currency,
		RedirectURL: cfg.Payments.RedirectURL,
		Title:       cfg.Payments.Title,
	}, tasks)
	leadService := leads.NewService(leadRepo, classifier, effects)
	quotaService := quota.NewService(quota.NewPostgresRepo(db), cfg.App.DefaultCallQuota)

	processor := webhook.NewProcessor(webhook.Deps{
		Events:        events.NewService(events.NewPostgresRepo(db)),
		Calls:         callRepo,
		Leads:         leadService,
		Notifier:      notifier,
		Tasks:         tasks,
		Feed:          feed,
		CostPerMinute: cfg.Vapi.CostPerMinute,
	})

	demoLimiter, publicLimiter := newLimiters(rootCtx, cfg.RateLimit, rdb)

	h := httpapi.Handlers{
		Provider:          provider,
		Calls:             callRepo,
		Leads:             leadService,
		Conversation:      conversation.NewService(conversation.NewPostgresStore(db), classifier, responder),
		Quota:             quotaService,
		Reporting:         reporting.NewService(reporting.Sources{Calls: callRepo, Leads: leadRepo}),
		Notifier:          notifier,
		Tasks:             tasks,
		Live:              livefeed.NewHandler(feed, cfg.App.CORSOrigins),
		DBCheck:           func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
		Env:               cfg.App.Env,
		Version:           cfg.App.Version,
		StartedAt:         time.Now(),
		Production:        cfg.IsProduction(),
		DemoAssistantID:   cfg.Vapi.DemoAssistantID,
		DemoPhoneNumberID: cfg.Vapi.DemoPhoneNumberID,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(httpapi.CORS(cfg.App.CORSOrigins))

	registerRoutes(r, routeDeps{
		handlers:      h,
		auth:          authManager,
		processor:     processor,
		webhookSecret: cfg.Vapi.WebhookSecret,
		demoLimiter:   demoLimiter,
		publicLimiter: publicLimiter,
		requestLogs:   requestLogs,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Provider calls may take up to the 30s client timeout.
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	drain(shutdownCtx, log, srv, tasks, stopLogs, requestLogs)
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", "err", err)
	}
}

// newLimiters builds the demo-call and public-route limiters on the configured backend.
func newLimiters(ctx context.Context, cfg config.RateLimitConfig, rdb *redis.Client) (ratelimit.Limiter, ratelimit.Limiter) {
	if cfg.Backend == "redis" {
		return ratelimit.NewRedisLimiter(rdb, "demo", cfg.DemoWindow, cfg.DemoMax),
			ratelimit.NewRedisLimiter(rdb, "public", cfg.PublicWindow, cfg.PublicMax)
	}
	demo := ratelimit.NewMemoryLimiter(cfg.DemoWindow, cfg.DemoMax)
	public := ratelimit.NewMemoryLimiter(cfg.PublicWindow, cfg.PublicMax)
	demo.StartSweeper(ctx, cfg.SweepInterval)
	public.StartSweeper(ctx, cfg.SweepInterval)
	return demo, public
}
