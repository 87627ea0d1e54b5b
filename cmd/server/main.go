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

	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/predict-api/internal/config"
	"github.com/Brownie44l1/predict-api/internal/handlers"
	"github.com/Brownie44l1/predict-api/internal/imaging"
	"github.com/Brownie44l1/predict-api/internal/inference"
	"github.com/Brownie44l1/predict-api/internal/logging"
	"github.com/Brownie44l1/predict-api/internal/middleware"
	"github.com/Brownie44l1/predict-api/internal/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Finalize(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(&cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	opts := modelOptions(&cfg.Model)
	handle := model.NewHandle(model.ONNXLoader(model.ONNXConfig{
		Path:        cfg.Model.Path,
		LibraryPath: cfg.Model.LibraryPath,
		Options:     opts,
	}))

	if cfg.Model.EagerLoad() {
		logger.Info("loading model", "path", cfg.Model.Path)
		m, err := handle.Get(ctx)
		if err != nil {
			return err
		}
		logger.Info("model loaded", "input_shape", m.InputShape())
	}

	pipeline := inference.New(
		imaging.NewDecoder(logger, cfg.Model.MaxPixels),
		handle,
		opts,
		cfg.Inference.TimeoutDuration(),
		logger,
	)
	defer release(pipeline, handle, cfg.Server.ShutdownTimeoutDuration(), logger)

	mux := http.NewServeMux()
	handlers.NewHandler(pipeline, logger).Routes(mux)

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: middleware.Chain(mux,
			middleware.Logger(logger),
			middleware.CORS(&cfg.CORS),
			middleware.LimitBody(cfg.Server.MaxBodySizeBytes()),
		),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			"addr", srv.Addr,
			"image_size", opts.ImageSize,
			"layout", opts.Layout,
			"pixel_scale", opts.Scale,
			"eager", cfg.Model.EagerLoad(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// release closes the model once in-flight inference has drained. Runs that
// outlive the timeout keep the model open; the process is exiting anyway.
func release(pipeline *inference.Pipeline, handle *model.Handle, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pipeline.Wait(ctx); err != nil {
		logger.Warn("inference still running, model left open", "error", err)
		return
	}
	if err := handle.Close(); err != nil {
		logger.Error("failed to release model", "error", err)
	}
}

func modelOptions(cfg *config.ModelConfig) model.Options {
	return model.Options{
		ImageSize: cfg.ImageSize,
		Layout:    model.Layout(cfg.Layout),
		Scale:     model.Scale(cfg.PixelScale),
	}
}
