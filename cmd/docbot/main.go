// Package main is the entry point for the document bot.
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docbot/docbot/internal/bot"
	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/config"
	"github.com/docbot/docbot/internal/convert"
	"github.com/docbot/docbot/internal/dispatch"
	"github.com/docbot/docbot/internal/handler"
	"github.com/docbot/docbot/internal/intent"
	"github.com/docbot/docbot/internal/llm"
	"github.com/docbot/docbot/internal/memory"
	natsclient "github.com/docbot/docbot/internal/nats"
	"github.com/docbot/docbot/internal/pdfmerge"
	"github.com/docbot/docbot/internal/session"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/internal/transport/telegram"
	"github.com/docbot/docbot/internal/workflow"
	"github.com/docbot/docbot/pkg/logger"
	"github.com/docbot/docbot/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewWithOptions(logger.Options{
		Level:       cfg.LogLevel,
		Development: os.Getenv("ENV") == "development",
		File:        cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("Starting docbot",
		zap.Bool("token_set", cfg.TelegramToken != ""),
		zap.Bool("database_set", cfg.DatabaseURL != ""),
		zap.Bool("ai_endpoint_set", cfg.AIEndpoint != ""),
		zap.Bool("ai_key_set", cfg.AIAPIKey != ""),
		zap.Bool("nats_set", cfg.NATSURL != ""),
		zap.String("ai_provider", cfg.AIProvider),
	)

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration, set the variables below and restart", zap.Error(err))
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("Fatal error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "docbot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("Failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	dial, err := memory.DialerFor(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	mem := memory.NewAdapter(dial, cfg.MemoryFallbackTurns, log)
	defer mem.Close()

	ai, err := newAIClient(cfg, log)
	if err != nil {
		return err
	}

	var (
		jobs      workflow.JobPublisher = workflow.NopPublisher{}
		jobSource handler.JobSource
		natsReady handler.Readiness
	)
	if cfg.NATSURL != "" {
		nc, streams, err := connectNATS(ctx, cfg, log)
		if err != nil {
			log.Warn("Job events disabled", zap.Error(err))
		} else {
			defer nc.Close()
			jobs = natsclient.NewPublisher(streams, log)
			jobSource = streams
			natsReady = handler.ReadyFunc(nc.IsConnected)
		}
	}

	tg, err := telegram.New(cfg.TelegramToken, log)
	if err != nil {
		return err
	}

	counters := stats.New()
	opts := workflow.Options{
		MaxFileBytes: cfg.MaxFileBytes(),
		ConfirmTTL:   cfg.MergeConfirmTTL,
	}
	resp := workflow.NewResponder(tg, mem, log)

	router := bot.NewRouter(bot.Deps{
		Sessions:   session.NewStore(cfg.SessionIdleTTL),
		Memory:     mem,
		Classifier: intent.NewClassifier(ai, telegram.Platform, log),
		Responder:  resp,
		Conversion: workflow.NewConversion(resp, convert.NewSoffice(cfg.SofficePath, cfg.ConvertTimeout, log), ai, counters, jobs, opts, log),
		Merge:      workflow.NewMerge(resp, pdfmerge.NewPDFCPU(log), ai, counters, jobs, opts, log),
		Counters:   counters,
	}, bot.Options{
		AdminUserID:  cfg.AdminUserID,
		MaxFileMB:    cfg.MaxFileMB,
		HistoryTurns: cfg.HistoryTurns,
	}, log)

	var menu []telegram.CommandInfo
	for _, c := range router.Commands() {
		menu = append(menu, telegram.CommandInfo{Name: c.Name, Description: c.Description})
	}
	if err := tg.SetCommands(menu); err != nil {
		log.Warn("Failed to publish command menu", zap.Error(err))
	}

	dispatcher := dispatch.New(router.Handle, cfg.Concurrency, log)

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: handler.NewRouter(handler.RouterConfig{
			Health:            handler.NewHealthHandler(tg, natsReady),
			Admin:             handler.NewAdminHandler(counters, jobSource, log),
			JWTSecret:         cfg.AdminJWTSecret,
			AdminSubject:      cfg.AdminUserID,
			RateLimitRequests: cfg.RateLimitRequests,
			RateLimitWindow:   cfg.RateLimitWindow,
		}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Jobs keep running through shutdown until the drain deadline.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tg.Run(gctx, func(_ context.Context, ev chat.Event) error {
			return dispatcher.Submit(workCtx, ev)
		})
	})

	g.Go(func() error {
		log.Info("Ops server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ops server forced to shutdown", zap.Error(err))
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Warn("Abandoning in-flight jobs", zap.Error(err), zap.Int("conversations", dispatcher.Active()))
			cancelWork()
		}
		return nil
	})

	return g.Wait()
}

func newAIClient(cfg *config.Config, log *logger.Logger) (llm.Client, error) {
	if cfg.AIAPIKey == "" {
		log.Warn("AI_API_KEY not set, intent classification falls back to the generic prompt")
		return llm.Disabled("AI_API_KEY not set"), nil
	}
	return llm.NewClient(llm.Options{
		Provider:   llm.Provider(cfg.AIProvider),
		Endpoint:   cfg.AIEndpoint,
		APIKey:     cfg.AIAPIKey,
		Model:      cfg.AIModel,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	}, log)
}

func connectNATS(ctx context.Context, cfg *config.Config, log *logger.Logger) (*natsclient.Client, *natsclient.StreamManager, error) {
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	streams := natsclient.NewStreamManager(nc)
	if err := streams.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("ensure stream: %w", err)
	}
	return nc, streams, nil
}
