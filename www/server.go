package www

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/config"
	"github.com/angas/tariffsaver-go/database"
)

// Server exposes the derived readouts: period breakdowns, the price curve and
// instance status over JSON, plus a websocket that pushes a note whenever new
// slots are booked. Everything served here is a read-only snapshot of the
// store.
type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	store   *accounting.Store
	hub     *Hub
	version string
}

func StartServer(db *database.Database, store *accounting.Store, cnfg config.AppConfigApi, version string) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:  logger,
		config:  cnfg,
		store:   store,
		hub:     NewHub(logger),
		version: version,
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	http.Handle("/api/breakdown", logReqMW(NewBreakdownHandler(
		logger.With(slog.String("handler", "breakdown")),
		s.store)))

	http.Handle("/api/prices", logReqMW(NewPricesHandler(
		logger.With(slog.String("handler", "prices")),
		s.store)))

	http.Handle("/api/booked", logReqMW(NewBookedHandler(
		logger.With(slog.String("handler", "booked")),
		s.store)))

	http.Handle("/api/status", logReqMW(NewStatusHandler(
		logger.With(slog.String("handler", "status")),
		s.store,
		version)))

	http.Handle("/api/log", logReqMW(NewLogHandler(
		logger.With(slog.String("handler", "log")),
		db)))

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return s
}

// BroadcastBooked notifies connected clients that count new slots were
// finalized so they can re-fetch the breakdowns.
func (s *Server) BroadcastBooked(count int) {
	msg := fmt.Sprintf(`{"event":"slots_booked","count":%d}`, count)
	select {
	case s.hub.Broadcast <- []byte(msg):
	default:
		s.logger.Warn("broadcast channel full, dropping booked event")
	}
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	for {
		select {
		case err := <-srvErrors:
			if err != nil {
				s.logger.Error("server error", slog.Any("error", err))
			}

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return
		}
	}
}
