package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gunplay/internal/game"
	"gunplay/internal/input"
	"gunplay/internal/render"
	"gunplay/internal/weapon"
)

const maxBodyBytes = 4 << 10

// weaponView is the catalog entry served to clients.
type weaponView struct {
	weapon.Spec
	Slot       weapon.Slot `json:"slot"`
	HasPattern bool        `json:"hasPattern"`
}

func newWeaponView(s weapon.Spec) weaponView {
	return weaponView{Spec: s, Slot: weapon.SlotFor(s.Classification), HasPattern: s.HasPattern()}
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	specs := weapon.AllSpecs()
	out := make([]weaponView, 0, len(specs))
	for _, s := range specs {
		out = append(out, newWeaponView(s))
	}
	writeJSON(w, out)
}

func (h *routerHandlers) handleGetWeapon(w http.ResponseWriter, r *http.Request) {
	spec, ok := weapon.LookupSpec(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, "unknown weapon", http.StatusNotFound)
		return
	}
	writeJSON(w, newWeaponView(spec))
}

func (h *routerHandlers) handleGetPattern(w http.ResponseWriter, r *http.Request) {
	spec, ok := weapon.LookupSpec(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, "unknown weapon", http.StatusNotFound)
		return
	}

	opts := render.DefaultOptions()
	opts.Width = queryInt(r, "width", opts.Width, 64, 2048)
	opts.Height = queryInt(r, "height", opts.Height, 64, 2048)

	var buf bytes.Buffer
	if err := render.WritePatternPNG(&buf, spec, opts); err != nil {
		if errors.Is(err, render.ErrNoPattern) {
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(buf.Bytes())
}

func (h *routerHandlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Sessions())
}

// createSessionResponse carries the token the client must present to drive
// or end the session.
type createSessionResponse struct {
	Session   game.SessionInfo `json:"session"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

func (h *routerHandlers) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Loadout []string `json:"loadout"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}

	info, err := h.engine.CreateSession(req.Loadout)
	switch {
	case errors.Is(err, game.ErrSessionLimit):
		writeError(w, "session limit reached", http.StatusServiceUnavailable)
		return
	case err != nil:
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expires, err := h.tokens.Issue(info.ID)
	if err != nil {
		h.engine.EndSession(info.ID)
		writeError(w, "token failed", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, http.StatusCreated, createSessionResponse{
		Session:   info,
		Token:     token,
		ExpiresAt: expires,
	})
}

func (h *routerHandlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, ok := h.engine.Session(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

func (h *routerHandlers) handleEndSession(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.EndSession(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, summary)
}

// handlePushInput accepts one input message, for clients without a socket.
func (h *routerHandlers) handlePushInput(w http.ResponseWriter, r *http.Request) {
	var msg input.Message
	if err := decodeBody(r, &msg); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	ev, ok := msg.Resolve()
	if !ok {
		RecordInputDropped("invalid")
		writeError(w, "unknown input", http.StatusBadRequest)
		return
	}

	switch err := h.engine.Push(chi.URLParam(r, "id"), ev); {
	case errors.Is(err, game.ErrSessionNotFound):
		RecordInputDropped("unknown_session")
		writeError(w, "session not found", http.StatusNotFound)
	case errors.Is(err, game.ErrInputDropped):
		RecordInputDropped("limited")
		w.Header().Set("Retry-After", "1")
		writeError(w, "input dropped", http.StatusTooManyRequests)
	case err != nil:
		writeError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSONStatus(w, http.StatusAccepted, map[string]string{"event": ev.String()})
	}
}

func (h *routerHandlers) handleRecentStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, "statistics disabled", http.StatusServiceUnavailable)
		return
	}
	n := queryInt(r, "n", 20, 1, h.recentLimit)
	recent, err := h.stats.Recent(r.Context(), n)
	if err != nil {
		writeError(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recent)
}

func (h *routerHandlers) handleTotals(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, "statistics disabled", http.StatusServiceUnavailable)
		return
	}
	totals, err := h.stats.Totals(r.Context())
	if err != nil {
		writeError(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, totals)
}

// Helper functions (package-level for reuse)

// decodeBody decodes an optional JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// queryInt parses an integer query parameter clamped to [lo, hi].
func queryInt(r *http.Request, key string, def, lo, hi int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return max(lo, min(v, hi))
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSONStatus(w, code, map[string]string{"error": message})
}
