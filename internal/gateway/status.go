package gateway

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime       float64  `json:"uptime_seconds"`
	Model        string   `json:"model"`
	ChatMemory   bool     `json:"chat_memory"`
	Search       bool     `json:"search"`
	Prefix       string   `json:"prefix"`
	ActiveScopes int      `json:"active_scopes"`
	Jobs         []string `json:"jobs"`
}

// handleStatus reports the running settings and housekeeping state.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Jobs:   []string{},
		}
		if g.deps.Admin != nil {
			s := g.deps.Admin.Settings()
			resp.Model, resp.ChatMemory, resp.Search, resp.Prefix = s.Model, s.ChatMemory, s.UseSearchEngine, s.Prefix
		}
		if g.deps.Router != nil {
			resp.ActiveScopes = g.deps.Router.ActiveScopes()
		}
		if g.deps.Jobs != nil {
			resp.Jobs = g.deps.Jobs.Jobs()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
