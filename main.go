package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	maxBodyBytes        = 1 << 20
	retentionCheckEvery = time.Hour
	serverReadTimeout   = 15 * time.Second
	serverWriteTimeout  = 15 * time.Second
	serverIdleTimeout   = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("denim factory stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	store, err := newConfiguredStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      withRequestLogging(logger, newMux(store)),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		logger.Info("server shut down gracefully")
		return nil
	})
	if cfg.Retention > 0 {
		g.Go(func() error {
			runRetentionScheduler(gctx, store, cfg.Retention, retentionCheckEvery)
			return nil
		})
	}
	return g.Wait()
}

func newMux(store *Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/game", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TotalWeeks *int `json:"totalWeeks"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, store, err)
			return
		}
		g, err := store.CreateGame(r.Context(), body.TotalWeeks)
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusCreated, g.summary())
	})

	mux.HandleFunc("GET /api/game", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.ListGames())
	})

	mux.HandleFunc("POST /api/game/{code}/join", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
			Role string `json:"role"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, store, err)
			return
		}
		g, p, err := store.JoinGame(r.Context(), r.PathValue("code"), body.Name, body.Role)
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"playerId": p.ID,
			"role":     p.Role,
			"code":     g.Code,
		})
	})

	mux.HandleFunc("POST /api/game/{code}/start", func(w http.ResponseWriter, r *http.Request) {
		g, err := store.StartGame(r.Context(), r.PathValue("code"))
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "game": g.summary()})
	})

	mux.HandleFunc("GET /api/game/{code}/decisions", func(w http.ResponseWriter, r *http.Request) {
		week := 0
		if raw := r.URL.Query().Get("week"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, r, store, invalidArgument("invalid week"))
				return
			}
			week = n
		}
		view, err := store.ListDecisions(r.PathValue("code"), week)
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	mux.HandleFunc("POST /api/game/{code}/decisions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerID string          `json:"playerId"`
			Type     string          `json:"type"`
			Data     json.RawMessage `json:"data"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, store, err)
			return
		}
		res, err := store.SubmitDecision(r.Context(), r.PathValue("code"), body.PlayerID, body.Type, body.Data)
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			OK bool `json:"ok"`
			SubmitResult
		}{true, res})
	})

	mux.HandleFunc("POST /api/game/{code}/process-round", func(w http.ResponseWriter, r *http.Request) {
		summary, err := store.ProcessRound(r.Context(), r.PathValue("code"))
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	mux.HandleFunc("GET /api/game/{code}/state", func(w http.ResponseWriter, r *http.Request) {
		view, err := store.GameState(r.PathValue("code"))
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	mux.HandleFunc("GET /api/game/{code}/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := store.ListEvents(r.PathValue("code"))
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, events)
	})

	mux.HandleFunc("POST /api/game/{code}/events", func(w http.ResponseWriter, r *http.Request) {
		var in EventInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, r, store, err)
			return
		}
		ev, err := store.CreateEvent(r.Context(), r.PathValue("code"), in)
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusCreated, ev)
	})

	mux.HandleFunc("GET /api/game/{code}/rounds", func(w http.ResponseWriter, r *http.Request) {
		rounds, err := store.ListRounds(r.PathValue("code"))
		if err != nil {
			writeError(w, r, store, err)
			return
		}
		writeJSON(w, http.StatusOK, rounds)
	})

	return mux
}

// decodeBody reads a JSON object into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return invalidArgument("malformed JSON body")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return invalidArgument("malformed JSON body: unexpected data after object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, store *Store, err error) {
	ae := asAppError(err)
	status := ae.Code.httpStatus()
	if status >= http.StatusInternalServerError {
		store.logger.Error("request failed",
			"request_id", requestIDFrom(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": ae.Message})
}
