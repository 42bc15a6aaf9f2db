package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"idleforge/internal/config"
	"idleforge/internal/content"
	"idleforge/internal/event"
	"idleforge/internal/httpmw"
	"idleforge/internal/session"
)

// App holds what the handlers depend on. The handlers are a thin JSON
// surface over the session core; no game rule lives here.
type App struct {
	Session *session.Session
	Hub     *Hub
	Logger  *log.Logger
}

// NewHandler builds the HTTP surface: health, the read API, the inbound
// event endpoints, the spend endpoint, and the websocket feed.
func NewHandler(app *App, cfg config.Config) http.Handler {
	if app.Logger == nil {
		app.Logger = log.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "idleforge",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/api/balances", app.handleBalances)
	mux.HandleFunc("/api/generators", app.handleGenerators)
	mux.HandleFunc("/api/spend", app.handleSpend)
	mux.HandleFunc("/api/events/increment", app.handleIncrement)
	mux.HandleFunc("/api/events/milestone", app.handleMilestone)

	if app.Hub != nil {
		mux.HandleFunc("/ws", app.Hub.ServeWS)
	}

	return httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithRecover(app.Logger),
		httpmw.WithAccessLog(app.Logger),
		httpmw.WithRateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	)
}

func (app *App) handleBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balances": app.Session.Wallet.Balances(),
	})
}

func (app *App) handleGenerators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	gens, err := app.Session.Generators()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load generators failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"generators": gens})
}

type spendRequest struct {
	Items []content.CostItem `json:"items"`
}

func (app *App) handleSpend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid spend request")
		return
	}
	ok, err := app.Session.Wallet.TrySpend(req.Items)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spent": ok})
}

func (app *App) handleIncrement(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ev event.IncrementBalance
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Resource == "" {
		writeError(w, http.StatusBadRequest, "invalid increment event")
		return
	}
	app.Session.Bus.Publish(event.TypeIncrementBalance, ev)
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (app *App) handleMilestone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var ev event.MilestoneFired
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.MilestoneID == "" {
		writeError(w, http.StatusBadRequest, "invalid milestone event")
		return
	}
	app.Session.Bus.Publish(event.TypeMilestoneFired, ev)
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
