package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/songwars/backend/internal/directory"
	"github.com/songwars/backend/internal/hub"
	"github.com/songwars/backend/internal/monitor"
	"github.com/songwars/backend/internal/ws"
)

// SetupRoutes wires the HTTP surface. Room creation happens over the
// websocket (create_room action), so there is no REST create endpoint.
func SetupRoutes(h *hub.Hub, dir *directory.Directory, log *zap.SugaredLogger, m *monitor.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(h, dir, log, m))
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
