package http

import (
	"net/http"
	"time"

	"github.com/hollandstar/sportteams/pkg/authsdk"
	"github.com/hollandstar/sportteams/pkg/httpx"
)

// health is the body shared by /livez and /readyz.
func health(status string, started time.Time, version string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(started).Round(time.Second).String(),
		Version: version,
	}
}

func writeHealth(w http.ResponseWriter, code int, body authsdk.HealthResponse) {
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, code, body)
}

// LivezHandler godoc
//
//	@Summary		Liveness
//	@Description	Reports that the auth process is up. Never touches the database or the token store,
//	@Description	so an orchestrator does not restart the service for a dependency outage.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(started time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, health("ok", started, version))
	}
}
