package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/core"
	"github.com/ytclab/ytcbot/internal/persona"
	"github.com/ytclab/ytcbot/internal/scope"
	"github.com/ytclab/ytcbot/internal/security"
)

const maxBodyBytes = 64 << 10

// textRequest is the body of every PUT that sets a prompt.
type textRequest struct {
	Text string `json:"text"`
}

func (g *Gateway) adminService(w http.ResponseWriter) (*admin.Service, bool) {
	if g.deps.Admin == nil {
		writeError(w, http.StatusServiceUnavailable, "admin service not available")
		return nil, false
	}
	return g.deps.Admin, true
}

// scopeParam returns the validated {scope} path parameter.
func scopeParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "scope")
	if err := scope.Validate(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req textRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return "", false
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, admin.ErrEmptyText.Error())
		return "", false
	}
	return req.Text, true
}

// handleGetPrompts reports the prompts, globally or as seen from {scope}.
func (g *Gateway) handleGetPrompts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}

		if chi.URLParam(r, "scope") == "" {
			s := svc.Settings()
			source := persona.SourceGlobal
			if s.Personality == "" {
				source = persona.SourceNone
			}
			writeJSON(w, http.StatusOK, admin.Prompts{
				SystemPrompt: s.SystemPrompt,
				Personality:  s.Personality,
				Effective:    s.Personality,
				Source:       string(source),
			})
			return
		}

		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		prompts, err := svc.Prompts(id)
		if err != nil {
			g.logger.Warn("scope persona unreadable", "scope", id, "error", err)
		}
		writeJSON(w, http.StatusOK, prompts)
	}
}

func (g *Gateway) handleSetSystemPrompt() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		text, ok := decodeText(w, r)
		if !ok {
			return
		}
		if _, err := svc.SetSystemPrompt(text); err != nil {
			g.writeAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleSetPersonality() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		text, ok := decodeText(w, r)
		if !ok {
			return
		}
		if _, err := svc.SetPersonality(text); err != nil {
			g.writeAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleSetScopePersonality() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		text, ok := decodeText(w, r)
		if !ok {
			return
		}
		if err := svc.SetScopePersonality(id, text); err != nil {
			g.writeAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleClearScopePersonality() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		removed, err := svc.ClearScopePersonality(id)
		if err != nil {
			g.writeAdminError(w, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "no personality override for scope")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetMemory returns the volatile window of ?author= and the durable
// excerpt of {scope}.
func (g *Gateway) handleGetMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		view, err := svc.Memory(r.Context(), r.URL.Query().Get("author"), id)
		if err != nil {
			g.logger.Warn("durable memory unreadable", "scope", id, "error", err)
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleClearMemory clears the ?author= window and the scope's durable log.
func (g *Gateway) handleClearMemory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		if err := svc.ClearMemory(r.Context(), r.URL.Query().Get("author"), id); err != nil {
			g.writeAdminError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleMemoryInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, ok := g.adminService(w)
		if !ok {
			return
		}
		id, ok := scopeParam(w, r)
		if !ok {
			return
		}
		info, err := svc.MemoryInfo(r.Context(), id)
		if err != nil {
			g.writeAdminError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// handleGetConfig returns the process configuration with secrets redacted.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.deps.Config == nil {
			writeError(w, http.StatusServiceUnavailable, "config not available")
			return
		}
		m, err := g.deps.Config.Map()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to serialize config")
			return
		}
		redactor := g.deps.Redactor
		if redactor == nil {
			redactor = security.NewRedactor()
		}
		redactor.RedactMap(m)
		writeJSON(w, http.StatusOK, m)
	}
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// handleModules lists every compiled-in module.
func (g *Gateway) handleModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{ID: string(m.ID), Namespace: m.ID.Namespace()})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleRunJob runs a housekeeping job immediately.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.deps.Jobs == nil {
			writeError(w, http.StatusServiceUnavailable, "scheduler not available")
			return
		}
		name := chi.URLParam(r, "name")
		ran, err := g.deps.Jobs.RunNow(r.Context(), name)
		switch {
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		case !ran:
			writeError(w, http.StatusConflict, "job unknown or already running")
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ran", "job": name})
		}
	}
}

func (g *Gateway) writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, admin.ErrEmptyText), errors.Is(err, scope.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		g.logger.Error("admin operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "operation failed")
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
