package bridge

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/pthm-cable/windfield/telemetry"
)

// HealthFunc reports the engine status for /healthz.
type HealthFunc func() Status

// NewRouter wires the websocket endpoint, metrics and health check.
// A nil hub serves only metrics and health, for hosts that drive the
// engine in process.
func NewRouter(hub *Hub, metrics *telemetry.Metrics, health HealthFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if hub != nil {
		r.Get("/bridge", hub.ServeWS)
	}
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := struct {
			Status
			Clients int `json:"clients"`
		}{}
		if hub != nil {
			resp.Clients = hub.ClientCount()
		}
		if health != nil {
			resp.Status = health()
		} else {
			resp.Status = Status{State: "ok"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

// NewServer creates the bridge HTTP server.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
