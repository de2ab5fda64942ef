package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"walkabout/server/internal/config"
	"walkabout/server/internal/hub"
	"walkabout/server/internal/logging"
	"walkabout/server/internal/protocol"
	"walkabout/server/internal/world"
	"walkabout/server/internal/ws"
)

func main() {
	cfg := config.Load()

	logger, sync := logging.New(cfg.LogFile)
	defer sync()

	encoding, err := protocol.ParseEncoding(cfg.Encoding)
	if err != nil {
		logger.Fatalw("bad WALKABOUT_ENCODING", "err", err)
	}
	mode, err := hub.ParseMode(cfg.BroadcastMode)
	if err != nil {
		logger.Fatalw("bad WALKABOUT_BROADCAST_MODE", "err", err)
	}

	clock := protocol.NewClock()
	codec := protocol.NewCodec(encoding, clock)
	store := world.NewStore(logger)
	h := hub.New(store, codec, logger)
	loop := hub.NewLoop(h, cfg.TickInterval, mode, logger)

	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(h, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Status     string `json:"status"`
			Players    int    `json:"players"`
			Sessions   int    `json:"sessions"`
			Timecode   uint32 `json:"timecode"`
			TickMillis int64  `json:"tickMillis"`
			Encoding   string `json:"encoding"`
			Mode       string `json:"mode"`
		}{
			Status:     "ok",
			Players:    store.Len(),
			Sessions:   h.SessionCount(),
			Timecode:   clock.Now(),
			TickMillis: cfg.TickInterval.Milliseconds(),
			Encoding:   string(encoding),
			Mode:       string(mode),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Warnw("encode diagnostics", "err", err)
		}
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		logger.Infow("listening", "addr", cfg.Addr, "encoding", encoding, "mode", mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("listen", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnw("shutdown", "err", err)
	}
}
