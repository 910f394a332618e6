package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/ai"
	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/csvexport"
	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/jsonstore"
	logger_adapter "github.com/Bonaventura-EW/olx-monitor/internal/adapters/logger"
	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/notify"
	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/olxfetcher"
	postgres_adapter "github.com/Bonaventura-EW/olx-monitor/internal/adapters/postgres"
	rabbitmq_adapter "github.com/Bonaventura-EW/olx-monitor/internal/adapters/rabbitmq"
	"github.com/Bonaventura-EW/olx-monitor/internal/adapters/rest"
	"github.com/Bonaventura-EW/olx-monitor/internal/configs"
	"github.com/Bonaventura-EW/olx-monitor/internal/constants"
	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
	usecases_port "github.com/Bonaventura-EW/olx-monitor/internal/core/port/usecases"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/usecase"
	fluentlogger "github.com/Bonaventura-EW/olx-monitor/pkg/fluent_logger"
	"github.com/Bonaventura-EW/olx-monitor/pkg/postgres"
	"github.com/Bonaventura-EW/olx-monitor/pkg/rabbitmq/rabbitmq_common"
	"github.com/Bonaventura-EW/olx-monitor/pkg/rabbitmq/rabbitmq_producer"
)

// App is the composition root: every adapter and use case is created and
// wired here, nowhere else.
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	connManager   *rabbitmq_common.ConnectionManager
	alertProducer *rabbitmq_producer.Publisher
	fluentClient  *fluent.Fluent
	apiServer     *rest.Server
	baseLogger    port.LoggerPort
	logger        port.LoggerPort

	runUC    usecases_port.RunMonitoringPort
	reportUC usecases_port.BuildWeeklyReportPort
}

func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// Loggers first, so every later failure is already visible.
	var activeLoggers []port.LoggerPort

	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		IsJSON:   false,
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}

		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit adapter", err, nil)
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiloggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}

	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	profiles, err := configs.LoadProfiles(appConfig.Monitor.ProfilesPath)
	if err != nil {
		appLogger.Error("Failed to load monitoring profiles", err, port.Fields{"path": appConfig.Monitor.ProfilesPath})
		return nil, fmt.Errorf("failed to load monitoring profiles: %w", err)
	}
	appLogger.Info("Monitoring profiles loaded", port.Fields{"count": len(profiles), "path": appConfig.Monitor.ProfilesPath})

	fetcher, err := olxfetcher.NewOlxFetcherAdapter(olxfetcher.Config{
		AllowedDomain:      appConfig.Fetcher.AllowedDomain,
		MarketURL:          appConfig.Fetcher.MarketURL,
		RandomDelaySeconds: appConfig.Fetcher.RandomDelaySeconds,
	}, baseLogger.WithFields(port.Fields{"component": "olx_fetcher"}))
	if err != nil {
		appLogger.Error("Failed to create OLX fetcher", err, nil)
		return nil, fmt.Errorf("failed to initialize olx fetcher: %w", err)
	}
	appLogger.Info("OLX Fetcher Adapter initialized.", nil)

	initCtx := contextkeys.ContextWithLogger(context.Background(), baseLogger)

	var (
		dbPool       *pgxpool.Pool
		historyStore port.HistoryStorePort
		stateStore   port.StateStorePort
		runStore     port.RunStorePort
	)
	switch appConfig.Storage.Backend {
	case "postgres":
		dbPool, err = postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Storage.PostgresURL})
		if err != nil {
			appLogger.Error("Failed to connect to PostgreSQL", err, nil)
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

		historyStore, err = postgres_adapter.NewHistoryStoreAdapter(initCtx, dbPool)
		if err == nil {
			stateStore, err = postgres_adapter.NewStateStoreAdapter(initCtx, dbPool)
		}
		if err == nil {
			runStore, err = postgres_adapter.NewRunStoreAdapter(initCtx, dbPool)
		}
		if err != nil {
			appLogger.Error("Failed to initialize PostgreSQL stores", err, nil)
			dbPool.Close()
			return nil, fmt.Errorf("failed to initialize postgres stores: %w", err)
		}
	default:
		storeLogger := baseLogger.WithFields(port.Fields{"component": "jsonstore"})
		historyStore, err = jsonstore.NewHistoryStoreAdapter(appConfig.Storage.HistoryPath, storeLogger)
		if err == nil {
			stateStore, err = jsonstore.NewStateStoreAdapter(appConfig.Storage.StatePath, storeLogger)
		}
		if err == nil {
			runStore, err = jsonstore.NewRunStoreAdapter(appConfig.Storage.LastRunPath, storeLogger)
		}
		if err != nil {
			appLogger.Error("Failed to initialize JSON stores", err, nil)
			return nil, fmt.Errorf("failed to initialize json stores: %w", err)
		}
	}
	appLogger.Info("Snapshot stores initialized.", port.Fields{"backend": appConfig.Storage.Backend})

	var (
		connManager    *rabbitmq_common.ConnectionManager
		alertProducer  *rabbitmq_producer.Publisher
		alertPublisher port.AlertPublisherPort = rabbitmq_adapter.NoopAlertPublisher{}
	)
	if appConfig.RabbitMQ.Enabled {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		connManager, err = rabbitmq_common.GetManager(appConfig.RabbitMQ.URL, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			closePool(dbPool)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}

		producerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"}))
		alertProducer, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.MonitorExchange,
			ExchangeType:             constants.MonitorExchangeType,
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   producerBridge,
		}, connManager)
		if err != nil {
			appLogger.Error("Failed to create alert producer", err, port.Fields{"url": appConfig.RabbitMQ.URL})
			connManager.Close()
			closePool(dbPool)
			return nil, fmt.Errorf("failed to create alert producer: %w", err)
		}

		alertPublisher, err = rabbitmq_adapter.NewAlertQueueAdapter(alertProducer)
		if err != nil {
			appLogger.Error("Failed to create alert queue adapter", err, nil)
			alertProducer.Close()
			connManager.Close()
			closePool(dbPool)
			return nil, err
		}
		appLogger.Info("RabbitMQ alert publisher initialized.", nil)
	}

	var exporter port.ListingExporterPort
	if appConfig.Export.Enabled {
		csvExporter, err := csvexport.NewListingExporterAdapter(appConfig.Export.Path)
		if err != nil {
			appLogger.Error("Failed to create CSV exporter", err, nil)
			return nil, err
		}
		exporter = csvExporter
		appLogger.Info("CSV exporter initialized.", port.Fields{"path": appConfig.Export.Path})
	}

	runUC := usecase.NewRunMonitoringUseCase(
		profiles, fetcher, historyStore, stateStore, runStore, alertPublisher, exporter,
		usecase.RunConfig{
			MinPrice:           appConfig.Monitor.MinPrice,
			MaxPrice:           appConfig.Monitor.MaxPrice,
			ZeroRatioThreshold: appConfig.Monitor.ZeroRatioAlertThreshold,
			PriceChangeRatio:   appConfig.Monitor.PriceChangeAlertRatio,
			FetchCreatedDates:  appConfig.Monitor.FetchCreatedDates,
		},
	)
	dashboardUC := usecase.NewDashboardQueriesUseCase(profiles, historyStore, stateStore, runStore)
	appLogger.Info("All use cases initialized.", nil)

	var reportUC usecases_port.BuildWeeklyReportPort
	if appConfig.Report.Enabled {
		renderer, err := notify.NewReportRenderer()
		if err != nil {
			appLogger.Error("Failed to create report renderer", err, nil)
			return nil, err
		}
		sender, err := notify.NewEmailSender(notify.EmailConfig{
			SMTPServer: appConfig.Report.SMTPServer,
			SMTPPort:   appConfig.Report.SMTPPort,
			SMTPUser:   appConfig.Report.SMTPUser,
			SMTPPass:   appConfig.Report.SMTPPass,
			From:       appConfig.Report.FromEmail,
			To:         appConfig.Report.ToEmail,
		})
		if err != nil {
			appLogger.Error("Failed to create e-mail sender", err, nil)
			return nil, err
		}

		var commentary port.CommentaryPort
		if appConfig.Report.GeminiAPIKey != "" {
			geminiAdapter, err := ai.NewGeminiCommentaryAdapter(initCtx, appConfig.Report.GeminiAPIKey, appConfig.Report.GeminiModels)
			if err != nil {
				appLogger.Warn("Gemini commentary unavailable, reports go out without it", port.Fields{"error": err.Error()})
			} else {
				commentary = geminiAdapter
			}
		}

		reportUC = usecase.NewBuildWeeklyReportUseCase(
			profiles, historyStore, stateStore, commentary, renderer, sender,
			appConfig.Monitor.PriceChangeAlertRatio,
		)
		appLogger.Info("Weekly report pipeline initialized.", port.Fields{"ai_commentary": commentary != nil})
	}

	var apiServer *rest.Server
	if appConfig.Rest.Enabled {
		monitorHandlers := rest.NewMonitorHandler(dashboardUC, runUC)
		apiServer = rest.NewServer(appConfig.Rest.PORT, monitorHandlers, baseLogger)
		appLogger.Info("REST server initialized.", port.Fields{"port": appConfig.Rest.PORT})
	}

	return &App{
		config:        appConfig,
		dbPool:        dbPool,
		connManager:   connManager,
		alertProducer: alertProducer,
		fluentClient:  fluentClient,
		apiServer:     apiServer,
		baseLogger:    baseLogger,
		logger:        appLogger,
		runUC:         runUC,
		reportUC:      reportUC,
	}, nil
}

// Run starts the scheduler and the HTTP server and blocks until a shutdown
// signal or a fatal component error. With no interval and no HTTP server the
// application degrades to a one-shot run, which is how cron or CI drives it.
func (a *App) Run() error {
	appCtx, cancelApp := context.WithCancel(context.Background())

	var runs sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		a.logger.Info("Waiting for in-flight runs to finish...", nil)
		runs.Wait()

		if a.apiServer != nil {
			if err := a.apiServer.Stop(context.Background()); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}
		if a.alertProducer != nil {
			if err := a.alertProducer.Close(); err != nil {
				a.logger.Error("Error closing alert producer", err, nil)
			}
		}
		if a.connManager != nil {
			if err := a.connManager.Close(); err != nil {
				a.logger.Error("Error closing RabbitMQ connection manager", err, nil)
			}
		}
		if a.dbPool != nil {
			a.dbPool.Close()
			a.logger.Info("PostgreSQL pool closed.", nil)
		}

		a.logger.Info("Application shut down gracefully.", nil)

		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				log.Printf("App: Error closing fluent client: %v\n", err)
			}
		}
	}()

	a.logger.Info("Application is starting...", nil)

	runCtx := contextkeys.ContextWithLogger(appCtx, a.baseLogger)

	// Cron mode: nothing to serve and nothing to schedule, one pass and out.
	if a.config.Monitor.IntervalMinutes <= 0 && a.apiServer == nil {
		return a.executeRun(runCtx)
	}

	serverErrors := make(chan error, 1)
	if a.apiServer != nil {
		go func() {
			a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
			if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
				serverErrors <- err
			}
		}()
	}

	if a.config.Monitor.RunOnStart {
		runs.Add(1)
		go func() {
			defer runs.Done()
			_ = a.executeRun(runCtx)
		}()
	}

	var tick <-chan time.Time
	if a.config.Monitor.IntervalMinutes > 0 {
		ticker := time.NewTicker(time.Duration(a.config.Monitor.IntervalMinutes) * time.Minute)
		defer ticker.Stop()
		tick = ticker.C
		a.logger.Info("Scheduler armed", port.Fields{"interval_minutes": a.config.Monitor.IntervalMinutes})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals, ticks or server error...", nil)
	for {
		select {
		case receivedSignal := <-quit:
			a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
			cancelApp()
			return nil
		case <-tick:
			runs.Add(1)
			go func() {
				defer runs.Done()
				_ = a.executeRun(runCtx)
			}()
		case err := <-serverErrors:
			a.logger.Error("Server failed to start, shutting down", err, nil)
			cancelApp()
			return err
		case <-appCtx.Done():
			a.logger.Warn("Context was cancelled unexpectedly, shutting down...", nil)
			return nil
		}
	}
}

// executeRun performs one monitoring pass and, when configured, follows it
// with the weekly digest. Overlapping schedules are skipped, not queued.
func (a *App) executeRun(ctx context.Context) error {
	if _, err := a.runUC.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			a.logger.Warn("Skipping scheduled run, the previous one is still in flight", nil)
			return nil
		}
		a.logger.Error("Monitoring run failed", err, nil)
		return err
	}
	if a.reportUC != nil {
		if err := a.reportUC.Execute(ctx); err != nil {
			a.logger.Error("Weekly report failed", err, nil)
		}
	}
	return nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
