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

	"github.com/gorilla/mux"
	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"

	"botfoundation/appctx"
	"botfoundation/clients/discord"
	"botfoundation/config"
	"botfoundation/config/setup"
	"botfoundation/core/log"
	"botfoundation/db"
	"botfoundation/handlers"
	"botfoundation/middleware"
	"botfoundation/modules"
	"botfoundation/services/audit"
	"botfoundation/services/cooldown"
	"botfoundation/services/dispatcher"
	"botfoundation/services/errorclassifier"
	"botfoundation/services/moderation"
	"botfoundation/services/registry"
	"botfoundation/services/scheduler"
	"botfoundation/services/txmanager"
)

type Options struct {
	Config      string `long:"config" short:"c" description:"Path to a YAML config file, overridden by environment variables"`
	EnvFile     string `long:"env-file" description:"Path to a .env file" default:".env"`
	MigrateOnly bool   `long:"migrate-only" description:"Apply database migrations and exit"`
	Setup       bool   `long:"setup" description:"Run the interactive config setup before starting"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		log.Error("❌ Fatal error", "error", err)
		fmt.Fprintf(os.Stderr, "❌ Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts Options) error {
	proceed, err := prepareConfigFile(context.Background(), &opts)
	if err != nil || !proceed {
		return err
	}

	cfg, err := config.LoadConfig(config.LoadOptions{EnvFile: opts.EnvFile, ConfigFile: opts.Config})
	if err != nil {
		return err
	}

	closeLogs, err := log.Init(log.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closeLogs()

	signalCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancelCause(signalCtx)
	defer cancel(nil)

	// Initialize database connection
	dbConn, err := db.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	schema := db.SchemaFor(dbConn, cfg.DatabaseSchema)
	if err := db.Migrate(ctx, dbConn, schema); err != nil {
		return err
	}
	if opts.MigrateOnly {
		log.Info("✅ Database migrations applied, exiting")
		return nil
	}

	// Initialize repositories with shared connection
	blacklistRepo := db.NewBlacklistRepository(dbConn, schema)
	warnsRepo := db.NewWarnsRepository(dbConn, schema)
	txManager := txmanager.NewTransactionManager(dbConn)
	moderationService := moderation.NewModerationService(blacklistRepo, warnsRepo, txManager)

	gateway, err := discord.NewGateway(cfg.BotToken, nil)
	if err != nil {
		return err
	}

	auditLogger := audit.NewZapAuditLogger(log.Named("audit"))
	commandRegistry := registry.NewRegistry()
	app := &appctx.App{
		Config:     cfg,
		Commands:   commandRegistry,
		Gateway:    gateway,
		Moderation: moderationService,
		Audit:      auditLogger,
	}

	modules.Load(commandRegistry,
		modules.NewGeneralModule(app),
		modules.NewOwnerModule(app),
		modules.NewModerationModule(app),
	)

	// Initialize error alert middleware
	alertMiddleware := middleware.NewErrorAlertMiddleware(middleware.SlackAlertConfig{
		WebhookURL:  cfg.SlackAlertWebhookURL,
		Environment: cfg.Environment,
		AppName:     "discord-bot",
	}).WithFatalHandler(func(err error) {
		if cfg.CrashOnUnclassified {
			log.Error("🛑 Unclassified error, shutting down", "error", err)
			cancel(err)
		}
	})

	cooldowns := cooldown.NewTracker()
	responder := errorclassifier.NewResponder(errorclassifier.NewClassifier(cfg.Prefix), gateway, auditLogger)
	commandDispatcher := dispatcher.NewDispatcher(app, cooldowns, responder)

	jobScheduler := scheduler.NewScheduler(auditLogger).WithTaskWrapper(alertMiddleware.WrapBackgroundTask)
	presenceJob, err := scheduler.NewPresenceRotationJob(gateway, cfg.PresenceInterval, cfg.PresenceActivities, nil)
	if err != nil {
		return err
	}
	if err := jobScheduler.AddJob(presenceJob); err != nil {
		return err
	}
	if err := jobScheduler.AddJob(scheduler.NewCooldownSweepJob(cooldowns, cfg.CooldownSweepInterval)); err != nil {
		return err
	}

	// Queued events keep a live context while draining on shutdown
	eventsHandler := handlers.NewDiscordEventsHandler(
		context.WithoutCancel(ctx),
		cfg.DispatchWorkers,
		cfg.Prefix,
		cfg.SyncCommandsGlobally,
		alertMiddleware.WrapDispatch(commandDispatcher.Dispatch),
		gateway,
		commandRegistry,
		jobScheduler,
	)
	eventsHandler.Register(gateway.Session())

	var server *http.Server
	if cfg.Port != "" {
		router := mux.NewRouter()
		handlers.NewOpsHTTPHandler(gateway, commandRegistry, jobScheduler).SetupEndpoints(router)
		server = &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           alertMiddleware.HTTPMiddleware(handlers.NewCORSHandler(cfg.CORSAllowedOrigins, router)),
			ReadHeaderTimeout: 30 * time.Second,
		}
	}

	if err := gateway.Open(); err != nil {
		return err
	}

	return handleGracefulShutdown(ctx, cancel, server, func() {
		jobScheduler.Stop()
		if err := gateway.Close(); err != nil {
			log.Error("❌ Failed to close Discord gateway", "error", err)
		}
		eventsHandler.Stop()
		alertMiddleware.Wait()
	})
}

// prepareConfigFile runs the setup wizard when asked to, or when there is
// neither a config file nor a token and a user is at the terminal. It reports
// whether the bot should start.
func prepareConfigFile(ctx context.Context, opts *Options) (bool, error) {
	intro := "Bot configuration setup"
	if !opts.Setup {
		loadOpts := config.LoadOptions{EnvFile: opts.EnvFile, ConfigFile: opts.Config}
		if !config.NeedsSetup(loadOpts) || !isatty.IsTerminal(os.Stdin.Fd()) {
			return true, nil
		}
		intro = "There's no configuration file for the bot."
	}

	result, err := setup.Run(ctx, intro, os.Stdin, os.Stdout)
	if errors.Is(err, setup.ErrAborted) {
		fmt.Println("👋 Setup cancelled")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	switch result.Choice {
	case setup.ChoiceExit:
		return false, nil
	case setup.ChoiceExistingFile:
		opts.Config = result.Path
		return true, nil
	}

	path := opts.Config
	if path == "" {
		path = config.DefaultConfigFile
	}
	if err := config.WriteSetupFile(path, result.Answers); err != nil {
		return false, err
	}
	fmt.Printf("✅ Config written to %s\n", path)
	opts.Config = path
	return true, nil
}

func handleGracefulShutdown(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	server *http.Server,
	cleanup func(),
) error {
	if server != nil {
		go func() {
			log.Info("✅ Listening on http://localhost" + server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("❌ Server error", "error", err)
				cancel(fmt.Errorf("ops server failed: %w", err))
			}
		}()
	}

	<-ctx.Done()
	log.Info("🛑 Shutdown signal received, cleaning up...")

	cleanup()

	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("❌ Server shutdown error", "error", err)
			return err
		}
	}

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}

	log.Info("✅ Bot stopped gracefully")
	return nil
}
