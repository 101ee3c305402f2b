package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wishwall/wishwall-backend/internal/feed"
	"github.com/wishwall/wishwall-backend/pkg/config"
	"github.com/wishwall/wishwall-backend/pkg/logger"
)

const streamReadLimit = 512

type feedWatcher interface {
	Watch(ctx context.Context, send feed.SendFunc) error
}

// PublicWishStream upgrades to a websocket and pushes a public feed snapshot on
// connect and after every public change. The socket closes on the first read
// error, which is how a browser disconnect surfaces.
func PublicWishStream(watcher feedWatcher, cfg config.RealtimeConfig, origins []string, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     allowOrigins(origins),
	}
	pingEvery := cfg.PingInterval
	if pingEvery <= 0 {
		pingEvery = 30 * time.Second
	}
	writeWait := cfg.WriteTimeout
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	pongWait := pingEvery * 2

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the request.
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "feed.upgrade_failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		logg.Info(ctx, "feed.stream_opened")

		conn.SetReadLimit(streamReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(_ context.Context, snap feed.Snapshot) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			return conn.WriteJSON(snap)
		}
		if err := watcher.Watch(ctx, send); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "feed.stream_error")
		}
		cancel()

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
		<-readerDone
		logg.Info(r.Context(), "feed.stream_closed")
	}
}

// allowOrigins accepts non-browser clients and the configured origins. An
// empty list or "*" accepts everything.
func allowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		_, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}
