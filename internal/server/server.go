// Package server implements the JobTrack HTTP API.
//
// Routes:
//
//	POST   /api/search                        → run a one-off search
//	GET    /api/listings                      → recent stored listings
//	GET    /api/profiles                      → list search profiles
//	POST   /api/profiles                      → create or update a profile
//	DELETE /api/profiles/{id}                 → deactivate a profile
//	GET    /api/applications                  → list tracked applications
//	POST   /api/applications                  → track a listing
//	GET    /api/applications/{id}             → one application
//	DELETE /api/applications/{id}             → remove an application
//	POST   /api/applications/{id}/status      → update application status
//	GET    /api/applications/{id}/timeline    → status milestone history
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/Irehund/jobtrack/internal/fetch"
	"github.com/Irehund/jobtrack/internal/filter"
	"github.com/Irehund/jobtrack/internal/model"
	"github.com/Irehund/jobtrack/internal/settings"
	"github.com/Irehund/jobtrack/internal/source"
	"github.com/Irehund/jobtrack/internal/store"
	"github.com/Irehund/jobtrack/internal/tracker"
)

// ─── Handler ─────────────────────────────────────────────────────────────────

// Handler holds shared dependencies.
type Handler struct {
	registry *source.Registry
	orch     *fetch.Orchestrator
	tracker  *tracker.Service
	profiles *settings.Store
	feed     *store.Feed
}

// NewHandler returns a configured Handler.
func NewHandler(registry *source.Registry, trk *tracker.Service, profiles *settings.Store, feed *store.Feed) *Handler {
	return &Handler{
		registry: registry,
		orch:     fetch.New(),
		tracker:  trk,
		profiles: profiles,
		feed:     feed,
	}
}

// RegisterRoutes mounts all JobTrack routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/search", h.handleSearch)
	mux.HandleFunc("/api/listings", h.handleListings)
	mux.HandleFunc("/api/profiles", h.handleProfiles)
	mux.HandleFunc("/api/profiles/", h.handleProfileAction)
	mux.HandleFunc("/api/applications", h.handleApplications)
	mux.HandleFunc("/api/applications/", h.handleApplicationAction)
}

// ─── Search ──────────────────────────────────────────────────────────────────

type searchRequest struct {
	Keywords    []string `json:"keywords"`
	Location    string   `json:"location"`
	RadiusMiles int      `json:"radiusMiles"`
	MaxResults  int      `json:"maxResults"`
	WorkType    string   `json:"workType"`
	Experience  string   `json:"experienceLevel"`
	HomeLat     *float64 `json:"homeLatitude"`
	HomeLon     *float64 `json:"homeLongitude"`
	Sources     []string `json:"sources"`
}

type searchResponse struct {
	Listings      []model.Listing `json:"listings"`
	Total         int             `json:"total"`
	FailedSources []string        `json:"failedSources"`
}

// handleSearch runs the full fetch/merge/filter path synchronously and
// returns the result. Failed sources are reported, never an error status:
// a degraded search is still a search.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body searchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(body.Keywords) == 0 {
		jsonError(w, "body must contain keywords", http.StatusBadRequest)
		return
	}

	workType := model.WorkAny
	if body.WorkType != "" {
		var err error
		if workType, err = model.ParseWorkType(body.WorkType); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	experience := model.ExperienceAny
	if body.Experience != "" {
		var err error
		if experience, err = model.ParseExperience(body.Experience); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if (body.HomeLat == nil) != (body.HomeLon == nil) {
		jsonError(w, "homeLatitude and homeLongitude must be set together", http.StatusBadRequest)
		return
	}

	var adapters []source.Adapter
	if len(body.Sources) == 0 {
		adapters = h.registry.Available()
	} else {
		adapters = h.registry.Resolve(body.Sources)
	}
	if len(adapters) == 0 {
		jsonError(w, "no sources available; configure credentials", http.StatusServiceUnavailable)
		return
	}

	criteria := source.Criteria{
		Keywords:    body.Keywords,
		Location:    body.Location,
		RadiusMiles: body.RadiusMiles,
		MaxResults:  body.MaxResults,
	}
	fcfg := filter.Config{
		HomeLat:     body.HomeLat,
		HomeLon:     body.HomeLon,
		RadiusMiles: float64(body.RadiusMiles),
		WorkType:    workType,
		Experience:  experience,
		Keywords:    body.Keywords,
	}

	var failed []string
	listings := h.orch.FetchAndFilter(r.Context(), criteria, fcfg, adapters, func(p fetch.Progress) {
		failed = p.FailedSources
	})

	jsonOK(w, searchResponse{
		Listings:      listings,
		Total:         len(listings),
		FailedSources: failed,
	})
}

// ─── Listings feed ───────────────────────────────────────────────────────────

// handleListings handles GET /api/listings?limit=N
func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = v
	}

	listings, err := h.feed.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("[server] listings query error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, listings)
}

// ─── Profiles ────────────────────────────────────────────────────────────────

// handleProfiles handles GET /api/profiles and POST /api/profiles
func (h *Handler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profiles, err := h.profiles.List(r.Context())
		if err != nil {
			log.Printf("[server] list profiles error: %v", err)
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, profiles)

	case http.MethodPost:
		var p settings.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		p.Active = true
		if err := h.profiles.Save(r.Context(), &p); err != nil {
			var ve *settings.ValidationError
			if errors.As(err, &ve) {
				jsonError(w, ve.Msg, http.StatusBadRequest)
				return
			}
			log.Printf("[server] save profile error: %v", err)
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, p)

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProfileAction handles DELETE /api/profiles/{id}
func (h *Handler) handleProfileAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	id := parts[2]

	switch r.Method {
	case http.MethodGet:
		p, err := h.profiles.Get(r.Context(), id)
		if err != nil {
			h.profileError(w, err)
			return
		}
		jsonOK(w, p)

	case http.MethodDelete:
		if err := h.profiles.Deactivate(r.Context(), id); err != nil {
			h.profileError(w, err)
			return
		}
		jsonOK(w, map[string]string{"status": "deactivated"})

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) profileError(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrNotFound) {
		jsonError(w, "profile not found", http.StatusNotFound)
		return
	}
	log.Printf("[server] profile error: %v", err)
	jsonError(w, "database error", http.StatusInternalServerError)
}

// ─── Applications ────────────────────────────────────────────────────────────

// handleApplications handles GET /api/applications and POST /api/applications
func (h *Handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		apps, err := h.tracker.List(r.Context())
		if err != nil {
			log.Printf("[server] list applications error: %v", err)
			jsonError(w, "database error", http.StatusInternalServerError)
			return
		}
		jsonOK(w, apps)

	case http.MethodPost:
		var l model.Listing
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		app, err := h.tracker.Track(r.Context(), l)
		if err != nil {
			h.applicationError(w, err)
			return
		}
		jsonOK(w, app)

	default:
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApplicationAction handles
// GET|DELETE /api/applications/{id}, POST /api/applications/{id}/status and
// GET /api/applications/{id}/timeline
func (h *Handler) handleApplicationAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 && len(parts) != 4 {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		jsonError(w, "application id must be an integer", http.StatusBadRequest)
		return
	}

	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			h.getApplication(w, r, id)
		case http.MethodDelete:
			h.deleteApplication(w, r, id)
		default:
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch action := parts[3]; action {
	case "status":
		if r.Method != http.MethodPost {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.updateStatus(w, r, id)
	case "timeline":
		if r.Method != http.MethodGet {
			jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.getTimeline(w, r, id)
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
	}
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request, id int64) {
	app, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		h.applicationError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.tracker.Delete(r.Context(), id); err != nil {
		h.applicationError(w, err)
		return
	}
	jsonOK(w, map[string]string{"status": "deleted"})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, id int64) {
	var body struct {
		NewStatus string `json:"newStatus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewStatus == "" {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}

	app, err := h.tracker.UpdateStatus(r.Context(), id, body.NewStatus)
	if err != nil {
		h.applicationError(w, err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request, id int64) {
	events, err := h.tracker.Timeline(r.Context(), id)
	if err != nil {
		h.applicationError(w, err)
		return
	}
	jsonOK(w, events)
}

func (h *Handler) applicationError(w http.ResponseWriter, err error) {
	var ve *tracker.ValidationError
	switch {
	case errors.Is(err, tracker.ErrNotFound):
		jsonError(w, "application not found", http.StatusNotFound)
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	default:
		log.Printf("[server] application error: %v", err)
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
