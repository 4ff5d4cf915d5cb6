package gateway

import "net/http"

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Channels  []string `json:"channels"`
	Providers []string `json:"providers"`
	// ActiveScopes counts scopes with a turn in flight.
	ActiveScopes int `json:"active_scopes"`
}

// handleHealth reports liveness. The bot is degraded when it has no
// channel to talk on or no provider to answer with.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Channels: []string{}, Providers: []string{}}

		if g.deps.Channels != nil {
			resp.Channels = g.deps.Channels.Channels()
		}
		if g.deps.Providers != nil {
			resp.Providers = g.deps.Providers.Names()
		}
		if g.deps.Router != nil {
			resp.ActiveScopes = g.deps.Router.ActiveScopes()
		}
		if len(resp.Channels) == 0 || len(resp.Providers) == 0 {
			resp.Status = "degraded"
		}

		code := http.StatusOK
		if resp.Status != "ok" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
