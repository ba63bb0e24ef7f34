package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ThatsOurJake/simhorse-racing/internal/store"
)

// maxConfigBytes bounds an imported race file. Eight horses of JSON is a
// few kilobytes; a megabyte is already generous.
const maxConfigBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewRouter exposes the hub and store over HTTP. The store may be nil, in
// which case the saved-config and results routes respond 404.
func NewRouter(hub *Hub, st *store.Store, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	r.Get("/api/race", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, hub.Snapshot())
	})

	r.Get("/api/leaderboard", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, hub.Leaderboard())
	})

	r.Post("/api/race/start", func(w http.ResponseWriter, _ *http.Request) {
		if err := hub.StartRace(); err != nil {
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, hub.Snapshot())
	})

	r.Post("/api/race/stop", func(w http.ResponseWriter, _ *http.Request) {
		hub.StopRace()
		writeJSON(w, http.StatusOK, hub.Snapshot())
	})

	r.Post("/api/race/reset", func(w http.ResponseWriter, _ *http.Request) {
		hub.ResetRace()
		writeJSON(w, http.StatusOK, hub.Snapshot())
	})

	r.Get("/api/config", func(w http.ResponseWriter, _ *http.Request) {
		data, err := hub.ExportConfig()
		if err != nil {
			log.Error().Err(err).Msg("config export failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "export failed"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="race.json"`)
		w.Write(data)
	})

	r.Post("/api/config", func(w http.ResponseWriter, req *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(req.Body, maxConfigBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read body"})
			return
		}
		if issues := hub.ImportConfig(raw); len(issues) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, importResponse{Valid: false, Errors: issues})
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Valid: true})
	})

	if st != nil {
		r.Get("/api/configs", func(w http.ResponseWriter, _ *http.Request) {
			configs, err := st.ListConfigs()
			if err != nil {
				log.Error().Err(err).Msg("failed to list configs")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "list failed"})
				return
			}
			writeJSON(w, http.StatusOK, configs)
		})

		r.Post("/api/configs/{name}", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			if err := st.SaveConfig(name, hub.CurrentFile()); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"saved": name})
		})

		r.Post("/api/configs/{name}/load", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			saved, err := st.GetConfig(name)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, store.ErrNotFound) {
					status = http.StatusNotFound
				}
				writeJSON(w, status, errorResponse{Error: err.Error()})
				return
			}
			if err := hub.LoadFile(saved.File); err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, hub.Snapshot())
		})

		r.Get("/api/results", func(w http.ResponseWriter, _ *http.Request) {
			results, err := st.ListResults()
			if err != nil {
				log.Error().Err(err).Msg("failed to list results")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "list failed"})
				return
			}
			writeJSON(w, http.StatusOK, results)
		})
	}

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		sub, err := hub.Subscribe(conn)
		if err != nil {
			log.Debug().Err(err).Msg("failed to send initial state")
			return
		}
		// The feed is broadcast-only; the read loop just detects closes.
		go func() {
			defer hub.Unsubscribe(sub)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
