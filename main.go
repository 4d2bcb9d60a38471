package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configpkg "lwar/server/internal/config"
	"lwar/server/internal/logging"
	"lwar/server/internal/server"
)

// tickResolution is how often the driver loop samples the clock. The send
// throttle inside the server keeps the wire rate at the update interval.
const tickResolution = 5 * time.Millisecond

func main() {
	cfg, err := configpkg.Load()
	if err != nil {
		logging.L().Fatal("configuration invalid", logging.Error(err))
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		logging.L().Fatal("logging unavailable", logging.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	srv := server.New(cfg, logger, nil)
	if err := srv.Init(); err != nil {
		logger.Fatal("server init failed", logging.Error(err))
	}
	defer srv.Shutdown()

	//1.- The monitor runs beside the tick loop; it only reads published
	// snapshots, never simulation state.
	var monitorSrv *http.Server
	if cfg.MonitorAddr != "" {
		monitorSrv = &http.Server{Addr: cfg.MonitorAddr, Handler: srv.Monitor().Handler()}
		go func() {
			logger.Info("monitor listening", logging.String("addr", cfg.MonitorAddr))
			if err := monitorSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("monitor stopped", logging.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//2.- The dedicated binary is a thin timer around Tick: sample the
	// monotonic clock and let the server pace itself.
	start := time.Now()
	ticker := time.NewTicker(tickResolution)
	defer ticker.Stop()

	logger.Info("running", logging.Int("port", int(srv.Port())))
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if monitorSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = monitorSrv.Shutdown(shutdownCtx)
				cancel()
			}
			return
		case <-ticker.C:
			srv.Tick(time.Since(start).Milliseconds()+1, false)
		}
	}
}
