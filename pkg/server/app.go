package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "PairPulse/internal/middleware"
	"PairPulse/internal/service/binance"
	"PairPulse/internal/usecase"
	pkgch "PairPulse/pkg/clickhouse"
	"PairPulse/pkg/config"
	xhttp "PairPulse/pkg/http"
	pkgkafka "PairPulse/pkg/kafka"
	applogger "PairPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	collector   *usecase.TickCollector
	pipe        *mid.TickPipeline
	analyzer    *usecase.PairAnalyzer
	archiveProc *usecase.ArchiveProcessor
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies. The logger must be
// the process-wide one: shutdown flushes its collector, so a locally built
// substitute would leave aggregated batches stranded.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.TickCollector,
	pipe *mid.TickPipeline,
	analyzer *usecase.PairAnalyzer,
	archiveProc *usecase.ArchiveProcessor,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:         cfg,
		logger:      l,
		collector:   collector,
		pipe:        pipe,
		analyzer:    analyzer,
		archiveProc: archiveProc,
		consumer:    consumer,
		kh:          kh,
		chClient:    chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger
	if l == nil {
		var err error
		l, err = applogger.New(&applogger.Config{
			Level:  a.cfg.Log.Level,
			Format: a.cfg.Log.Format,
			Output: a.cfg.Log.Output,
		})
		if err != nil {
			log.Printf("failed to create logger: %v", err)
			return err
		}
		a.logger = l
	}

	// Best-effort symbol sanity check against the exchange. A failure here
	// is logged, not fatal: the stream loop will keep retrying regardless.
	if a.cfg.Binance.VerifySymbols {
		checker := binance.NewRESTChecker(a.cfg.Binance.RESTURL, 10*time.Second)
		if err := checker.VerifySymbols(ctx, a.cfg.Symbols()); err != nil {
			l.Warn("symbol verification failed", applogger.Error(err))
		}
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithRequestLogger(l, 500*time.Millisecond),
	)

	// Analyzer consumes closed bars before the collector starts producing
	// them, so the channel never backs up during warmup.
	go a.analyzer.Run(ctx, a.pipe.ClosedBars())

	if err := a.collector.Start(ctx); err != nil {
		l.Error("collector start error", applogger.Error(err))
		return err
	}
	l.Info("collector started",
		applogger.Strings("symbols", a.cfg.Symbols()),
		applogger.String("interval", a.cfg.Pair.Interval),
	)

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background(), l)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger) error {
	l.Info("shutting down...")

	// Stop collector (stream + pipeline)
	if err := a.collector.Stop(); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Flush aggregated log batches while the producer they publish
	// through is still open.
	l.RemoveCollector()

	// Close archive sinks (kafka producer / clickhouse writes)
	if a.archiveProc != nil {
		a.archiveProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
