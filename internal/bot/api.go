package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tazhate/familyschedule/config"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/ics"
	"github.com/tazhate/familyschedule/internal/importer"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/service"
)

const maxBodySize = 1 << 20

// APIResponse is the standard API response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ConflictResponse lists the pairs that blocked a write.
type ConflictResponse struct {
	Candidate domain.Activity `json:"candidate"`
	Existing  domain.Activity `json:"existing"`
}

// CreateRequest is the body of POST /api/activities.
type CreateRequest struct {
	domain.ActivityForm
	Week             int    `json:"week"`
	Year             int    `json:"year"`
	RecurringEndDate string `json:"recurringEndDate,omitempty"` // YYYY-MM-DD
}

// PasteRequest is the body of POST /api/paste.
type PasteRequest struct {
	FromWeek int `json:"fromWeek"`
	FromYear int `json:"fromYear"`
	ToWeek   int `json:"toWeek"`
	ToYear   int `json:"toYear"`
}

// API serves the schedule over HTTP with Basic Auth.
type API struct {
	cfg             *config.Config
	activityService *service.ActivityService
	scheduleService *service.ScheduleService
	familyService   *service.FamilyService
	calendarService *service.CalendarService
}

func NewAPI(cfg *config.Config, activitySvc *service.ActivityService, scheduleSvc *service.ScheduleService, familySvc *service.FamilyService, calendarSvc *service.CalendarService) *API {
	return &API{
		cfg:             cfg,
		activityService: activitySvc,
		scheduleService: scheduleSvc,
		familyService:   familySvc,
		calendarService: calendarSvc,
	}
}

// Register mounts the health check and every /api route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Week views
	mux.HandleFunc("/api/week", a.basicAuth(a.apiWeek))
	mux.HandleFunc("/api/layers", a.basicAuth(a.apiLayers))

	// Activities
	mux.HandleFunc("/api/activities", a.basicAuth(a.apiActivities))
	mux.HandleFunc("/api/activity/", a.basicAuth(a.apiActivity))
	mux.HandleFunc("/api/series/", a.basicAuth(a.apiSeries))
	mux.HandleFunc("/api/paste", a.basicAuth(a.apiPaste))

	// Import / export
	mux.HandleFunc("/api/import", a.basicAuth(a.apiImport))
	mux.HandleFunc("/api/export.ics", a.basicAuth(a.apiExportICS))
	mux.HandleFunc("/api/export.json", a.basicAuth(a.apiExportJSON))

	// Family and settings
	mux.HandleFunc("/api/settings", a.basicAuth(a.apiSettings))
	mux.HandleFunc("/api/members", a.basicAuth(a.apiMembers))

	// CalDAV
	mux.HandleFunc("/api/caldav/push", a.basicAuth(a.apiCalDAVPush))
}

// basicAuth guards a handler. Without configured credentials the API is open.
func (a *API) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.APIUsername == "" && a.cfg.APIPassword == "" {
			next(w, r)
			return
		}
		username, password, ok := r.BasicAuth()
		if !ok || username != a.cfg.APIUsername || password != a.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="FamilySchedule API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (a *API) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (a *API) jsonStatus(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (a *API) jsonError(w http.ResponseWriter, err string, status int) {
	a.jsonErrorData(w, err, nil, status)
}

func (a *API) jsonErrorData(w http.ResponseWriter, err string, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Data: data, Error: err})
}

// serviceError maps domain errors to status codes.
func (a *API) serviceError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		pairs := make([]ConflictResponse, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			pairs = append(pairs, ConflictResponse{Candidate: c.Candidate, Existing: c.Existing})
		}
		a.jsonErrorData(w, err.Error(), pairs, http.StatusConflict)
	case domain.IsValidation(err), domain.IsMalformedImport(err):
		a.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		a.jsonError(w, err.Error(), http.StatusNotFound)
	default:
		logger.Error("api request failed", "err", err)
		a.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		a.jsonError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// weekParams reads ?week=&year=, or ?offset= relative to the current week.
// Missing parameters mean the current week.
func (a *API) weekParams(r *http.Request) (week, year int, err error) {
	q := r.URL.Query()

	offset := 0
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, &domain.ValidationError{Field: "offset", Message: "must be a number"}
		}
	}
	week, year = a.scheduleService.CurrentWeek(offset)

	if v := q.Get("week"); v != "" {
		if week, err = strconv.Atoi(v); err != nil {
			return 0, 0, &domain.ValidationError{Field: "week", Message: "must be a number"}
		}
	}
	if v := q.Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, &domain.ValidationError{Field: "year", Message: "must be a number"}
		}
	}
	if err := domain.ValidateWeek(week, year); err != nil {
		return 0, 0, err
	}
	return week, year, nil
}

// GET /api/week?week=10&year=2024
func (a *API) apiWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	week, year, err := a.weekParams(r)
	if err != nil {
		a.serviceError(w, err)
		return
	}

	view, err := a.scheduleService.WeekView(week, year)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.jsonResponse(w, view)
}

// GET /api/layers?week=10&year=2024
func (a *API) apiLayers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	week, year, err := a.weekParams(r)
	if err != nil {
		a.serviceError(w, err)
		return
	}

	lanes, err := a.scheduleService.LayerView(week, year)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.jsonResponse(w, lanes)
}

// GET /api/activities - list activities, optionally ?week=&year=
// POST /api/activities - create one or more activities
func (a *API) apiActivities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			activities []domain.Activity
			err        error
		)
		if r.URL.Query().Get("week") != "" || r.URL.Query().Get("offset") != "" {
			week, year, perr := a.weekParams(r)
			if perr != nil {
				a.serviceError(w, perr)
				return
			}
			activities, err = a.activityService.ListWeek(week, year)
		} else {
			activities, err = a.activityService.List()
		}
		if err != nil {
			a.serviceError(w, err)
			return
		}
		if activities == nil {
			activities = []domain.Activity{}
		}
		a.jsonResponse(w, activities)

	case http.MethodPost:
		var req CreateRequest
		if !a.decode(w, r, &req) {
			return
		}

		if req.Week == 0 && req.Year == 0 {
			req.Week, req.Year = a.scheduleService.CurrentWeek(0)
		}
		if req.Recurring {
			end, err := time.ParseInLocation("2006-01-02", req.RecurringEndDate, a.cfg.Timezone)
			if err != nil {
				a.jsonError(w, "recurringEndDate: expected YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			req.RecurringEnd = end
		}

		created, err := a.activityService.Create(&req.ActivityForm, req.Week, req.Year)
		if err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonStatus(w, created, http.StatusCreated)

	default:
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/activity/{id}
// PUT /api/activity/{id}
// DELETE /api/activity/{id}
func (a *API) apiActivity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/activity/")
	if id == "" || strings.Contains(id, "/") {
		a.jsonError(w, "Invalid activity ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		activity, err := a.activityService.Get(id)
		if err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, activity)

	case http.MethodPut:
		var form domain.ActivityForm
		if !a.decode(w, r, &form) {
			return
		}
		updated, err := a.activityService.Update(id, &form)
		if err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, updated)

	case http.MethodDelete:
		if err := a.activityService.Delete(id); err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, map[string]string{"deleted": id})

	default:
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// DELETE /api/series/{id}
func (a *API) apiSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/series/")
	n, err := a.activityService.DeleteSeries(id)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.jsonResponse(w, map[string]int{"deleted": n})
}

// POST /api/paste
func (a *API) apiPaste(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PasteRequest
	if !a.decode(w, r, &req) {
		return
	}

	pasted, err := a.activityService.PasteWeek(req.FromWeek, req.FromYear, req.ToWeek, req.ToYear)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	if pasted == nil {
		pasted = []domain.Activity{}
	}
	a.jsonResponse(w, pasted)
}

// POST /api/import - body is a JSON array of activity records
func (a *API) apiImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := a.activityService.Import(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.serviceError(w, err)
		return
	}
	if res.Activities == nil {
		res.Activities = []domain.Activity{}
	}
	a.jsonResponse(w, res)
}

// GET /api/export.ics?week=10&year=2024
func (a *API) apiExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	week, year, err := a.weekParams(r)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	activities, err := a.activityService.ListWeek(week, year)
	if err != nil {
		a.serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ics.Filename(week, year)))
	if err := ics.EncodeWeek(w, activities, week, year, a.scheduleService.Now()); err != nil {
		logger.Error("write ics", "err", err)
	}
}

// GET /api/export.json
func (a *API) apiExportJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	activities, err := a.activityService.List()
	if err != nil {
		a.serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="familjens-schema.json"`)
	if err := importer.Export(w, activities); err != nil {
		logger.Error("write json export", "err", err)
	}
}

// GET /api/settings
// PUT /api/settings
func (a *API) apiSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		st, err := a.familyService.Settings()
		if err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, st)

	case http.MethodPut:
		var st domain.Settings
		if !a.decode(w, r, &st) {
			return
		}
		if err := a.familyService.SaveSettings(st); err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, st)

	default:
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/members
// PUT /api/members - replace the roster
func (a *API) apiMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		members, err := a.familyService.Members()
		if err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, members)

	case http.MethodPut:
		var members []domain.FamilyMember
		if !a.decode(w, r, &members) {
			return
		}
		if err := a.familyService.SetMembers(members); err != nil {
			a.serviceError(w, err)
			return
		}
		a.jsonResponse(w, members)

	default:
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/caldav/push?weeks=4
func (a *API) apiCalDAVPush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.calendarService == nil || !a.calendarService.IsConfigured() {
		a.jsonError(w, "CalDAV not configured", http.StatusServiceUnavailable)
		return
	}

	weeks := a.cfg.CalDAVWeeks
	if v := r.URL.Query().Get("weeks"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			a.jsonError(w, "weeks must be a positive number", http.StatusBadRequest)
			return
		}
		weeks = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	res, err := a.calendarService.PushWeeks(ctx, weeks)
	if err != nil {
		a.serviceError(w, err)
		return
	}
	a.jsonResponse(w, res)
}
