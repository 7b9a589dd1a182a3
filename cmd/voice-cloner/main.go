// main package for the voice-cloner service
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

	"github.com/book-expert/logger"
	"github.com/book-expert/voice-cloner/internal/cloning"
	"github.com/book-expert/voice-cloner/internal/config"
	"github.com/book-expert/voice-cloner/internal/core"
	"github.com/book-expert/voice-cloner/internal/objectstore"
	"github.com/book-expert/voice-cloner/internal/staging"
	"github.com/book-expert/voice-cloner/internal/tts"
	"github.com/book-expert/voice-cloner/internal/tts/audio"
	"github.com/book-expert/voice-cloner/internal/web"
	"github.com/book-expert/voice-cloner/internal/worker"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

// configFileEnv points at a TOML file that replaces the central configurator.
const configFileEnv = config.EnvPrefix + "CONFIG_FILE"

const (
	bootstrapLogFile   = "voice-cloner-bootstrap.log"
	serviceLogFile     = "voice-cloner.log"
	readHeaderTimeout  = 10 * time.Second
	writeTimeoutMargin = time.Minute
	shutdownTimeout    = 30 * time.Second
	sweepInterval      = time.Minute
	natsClientName     = "voice-cloner"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func loadConfig(log *logger.Logger) (*config.Config, error) {
	path := os.Getenv(configFileEnv)
	if path != "" {
		log.Info("Loading configuration from %s", path)

		return config.LoadFile(path)
	}

	return config.Load(log)
}

func newEngine(cfg *config.Config, log *logger.Logger) (core.Engine, error) {
	switch cfg.Engine.Backend {
	case config.EngineBackendCommand:
		return tts.NewCommandEngine(cfg.Engine.BinaryPath, log)
	case config.EngineBackendHTTP:
		return tts.NewHTTPEngine(cfg.Engine.ServiceURL, cfg.EngineTimeout(), log), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownEngineBackend, cfg.Engine.Backend)
	}
}

func newServiceOptions(cfg *config.Config) cloning.Options {
	return cloning.Options{
		MinSamples: cfg.Staging.MinSamples,
		MaxSamples: cfg.Staging.MaxSamples,
		SampleBounds: audio.DurationBounds{
			Min: time.Duration(cfg.Staging.MinSampleSeconds * float64(time.Second)),
			Max: time.Duration(cfg.Staging.MaxSampleSeconds * float64(time.Second)),
		},
		MaxConcurrent: cfg.Engine.MaxConcurrent,
		Timeout:       cfg.EngineTimeout(),
	}
}

// app holds everything the serve loop runs.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	service   *cloning.Service
	fileStore *objectstore.FileStore
	natsConn  *nats.Conn
	natsStore *objectstore.NatsObjectStore
}

func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	engine, err := newEngine(cfg, log)
	if err != nil {
		return nil, err
	}

	stager, err := staging.New(cfg.Staging.VoicesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare staging dir: %w", err)
	}

	application := &app{cfg: cfg, log: log}

	if cfg.NATS.Enabled {
		connectErr := application.connectNATS()
		if connectErr != nil {
			return nil, connectErr
		}
	}

	var store core.ClipStore

	switch cfg.Storage.Backend {
	case config.StorageBackendNATS:
		store = application.natsStore
	default:
		application.fileStore, err = objectstore.NewFileStore(cfg.Storage.ClipsDir)
		if err != nil {
			application.close()

			return nil, fmt.Errorf("failed to prepare clip store: %w", err)
		}

		store = application.fileStore
	}

	application.service = cloning.New(engine, stager, store, log, newServiceOptions(cfg))

	log.Info("Engine backend %s, storage backend %s, staging in %s",
		engine.Name(), cfg.Storage.Backend, stager.Root())

	return application, nil
}

func (a *app) connectNATS() error {
	natsConn, err := nats.Connect(a.cfg.NATS.URL, nats.Name(natsClientName))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConn.JetStream()
	if err != nil {
		natsConn.Close()

		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, a.cfg.NATS.ClipBucket, a.cfg.Retention())
	if err != nil {
		natsConn.Close()

		return err
	}

	a.natsConn = natsConn
	a.natsStore = store

	return nil
}

func (a *app) close() {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
}

// serve runs the HTTP server, the NATS worker and the retention sweeper until
// ctx is cancelled or one of them fails.
func (a *app) serve(ctx context.Context) error {
	var natsWorker *worker.NatsWorker

	if a.natsConn != nil {
		var err error

		natsWorker, err = worker.NewNatsWorker(a.natsConn, a.cfg.NATS.CloneSubject, a.natsStore,
			a.service, a.cfg.EngineTimeout()+writeTimeoutMargin, a.log)
		if err != nil {
			return err
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           web.NewHandler(a.service, a.log, a.cfg.MaxUploadBytes()).Routes(),
		ReadTimeout:       time.Duration(a.cfg.Server.ReadTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      a.cfg.EngineTimeout() + writeTimeoutMargin,
	}

	group.Go(func() error {
		a.log.System("Voice cloner listening on %s", a.cfg.Server.ListenAddr)

		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.log.Info("Shutting down HTTP server")

		return server.Shutdown(shutdownCtx)
	})

	if natsWorker != nil {
		group.Go(func() error {
			return natsWorker.Run(ctx)
		})
	}

	if a.fileStore != nil {
		group.Go(func() error {
			return a.sweep(ctx, sweepInterval)
		})
	}

	return group.Wait()
}

// sweep removes expired clips from the file store every interval.
func (a *app) sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := a.fileStore.Sweep(ctx, a.cfg.Retention())
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("Clip retention sweep failed: %v", err)

				continue
			}

			if removed > 0 {
				a.log.Info("Removed %d expired clips", removed)
			}
		}
	}
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration
	cfg, err := loadConfig(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Wire the service and serve until interrupted
	application, err := newApp(cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to initialize service: %v", err)

		return err
	}
	defer application.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := application.serve(ctx)
	if serveErr != nil {
		finalLog.Error("Service stopped with error: %v", serveErr)

		return serveErr
	}

	finalLog.System("Voice cloner stopped.")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
