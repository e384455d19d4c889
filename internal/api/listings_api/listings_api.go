package listings_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/services/listings"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"

	defaultSearchMax = 20
)

type Service interface {
	Identify(rawURL string) models.Platform
	Scrape(ctx context.Context, rawURL string) models.ExtractionResult
	Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error)
	Track(ctx context.Context, owner uint64, ownerEmail, rawURL string) (*models.TrackedListing, error)
	Get(ctx context.Context, owner, id uint64) (*models.TrackedListing, error)
	List(ctx context.Context, owner uint64) ([]*models.TrackedListing, error)
	Delete(ctx context.Context, owner, id uint64) error
	Refresh(ctx context.Context, owner, id uint64) (refresher.RefreshOutcome, error)
	Chart(ctx context.Context, owner, id uint64) ([]models.ChartPoint, error)
	SetAlert(ctx context.Context, owner uint64, ownerEmail string, listingID uint64, target float64, scope models.AlertScope) (*models.PriceAlertCondition, error)
	ListAlerts(ctx context.Context, owner, listingID uint64) ([]*models.PriceAlertCondition, error)
	DeleteAlert(ctx context.Context, owner, id uint64) error
}

type ListingsAPI struct {
	svc       Service
	searchMax int
}

func New(svc Service) *ListingsAPI {
	return &ListingsAPI{svc: svc, searchMax: defaultSearchMax}
}

func (a *ListingsAPI) WithSearchMax(n int) *ListingsAPI {
	if n > 0 {
		a.searchMax = n
	}
	return a
}

// Register mounts the v1 routes on r.
func (a *ListingsAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/platform", a.identifyQuery)
		r.Post("/platform", a.identify)
		r.Post("/scrape", a.scrape)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/search", a.search)

			r.Post("/listings", a.track)
			r.Get("/listings", a.list)
			r.Get("/listings/{id}", a.get)
			r.Delete("/listings/{id}", a.delete)
			r.Post("/listings/{id}/refresh", a.refresh)
			r.Get("/listings/{id}/chart", a.chart)

			r.Post("/listings/{id}/alerts", a.setAlert)
			r.Get("/listings/{id}/alerts", a.listAlerts)
			r.Delete("/alerts/{id}", a.deleteAlert)
		})
	})
}

type ctxKey struct{}

type user struct {
	id    uint64
	email string
}

// requireUser reads the caller identity set by the upstream auth proxy.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.Header.Get(HeaderUserID), 10, 64)
		if err != nil || id == 0 {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		u := user{id: id, email: strings.TrimSpace(r.Header.Get(HeaderUserEmail))}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func userFrom(r *http.Request) user {
	u, _ := r.Context().Value(ctxKey{}).(user)
	return u
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to status codes. Unexpected errors are
// logged and hidden from the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *listings.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, listings.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, listings.ErrFetchFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, listings.ErrRefreshFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "request canceled")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

type urlRequest struct {
	URL string `json:"url"`
}

func (a *ListingsAPI) identify(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]models.Platform{"platform": a.svc.Identify(req.URL)})
}

func (a *ListingsAPI) identifyQuery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]models.Platform{"platform": a.svc.Identify(r.URL.Query().Get("url"))})
}

func (a *ListingsAPI) scrape(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	res := a.svc.Scrape(r.Context(), req.URL)
	status := http.StatusOK
	if res.ErrorKind == models.ErrorKindValidation {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

type searchResponse struct {
	Query    string                `json:"query"`
	Amazon   []models.SearchResult `json:"amazon"`
	Flipkart []models.SearchResult `json:"flipkart"`
}

// search queries the requested platforms concurrently. One platform failing
// leaves its list empty.
func (a *ListingsAPI) search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Please enter a product name.")
		return
	}
	limit := a.searchMax
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid max")
			return
		}
		if n < limit {
			limit = n
		}
	}

	var platforms []models.Platform
	switch p := r.URL.Query().Get("platform"); p {
	case "", string(models.ScopeBoth):
		platforms = []models.Platform{models.PlatformAmazon, models.PlatformFlipkart}
	case string(models.PlatformAmazon), string(models.PlatformFlipkart):
		platforms = []models.Platform{models.Platform(p)}
	default:
		writeError(w, http.StatusBadRequest, "platform must be amazon, flipkart or both")
		return
	}

	out := searchResponse{Query: q, Amazon: []models.SearchResult{}, Flipkart: []models.SearchResult{}}
	g, ctx := errgroup.WithContext(r.Context())
	for _, p := range platforms {
		dst := &out.Amazon
		if p == models.PlatformFlipkart {
			dst = &out.Flipkart
		}
		g.Go(func() error {
			res, err := a.svc.Search(ctx, p, q, limit)
			if err != nil {
				slog.Warn("search failed", "platform", p, "error", err.Error())
				return nil
			}
			if res != nil {
				*dst = res
			}
			return nil
		})
	}
	_ = g.Wait()
	writeJSON(w, http.StatusOK, out)
}

func (a *ListingsAPI) track(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "Please enter a product URL.")
		return
	}
	u := userFrom(r)
	l, err := a.svc.Track(r.Context(), u.id, u.email, strings.TrimSpace(req.URL))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (a *ListingsAPI) list(w http.ResponseWriter, r *http.Request) {
	ls, err := a.svc.List(r.Context(), userFrom(r).id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ls == nil {
		ls = []*models.TrackedListing{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": ls})
}

type listingResponse struct {
	*models.TrackedListing
	Alerts []*models.PriceAlertCondition `json:"alerts"`
}

func (a *ListingsAPI) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner := userFrom(r).id
	l, err := a.svc.Get(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	all, err := a.svc.ListAlerts(r.Context(), owner, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	active := make([]*models.PriceAlertCondition, 0, len(all))
	for _, c := range all {
		if c.IsActive {
			active = append(active, c)
		}
	}
	writeJSON(w, http.StatusOK, listingResponse{TrackedListing: l, Alerts: active})
}

func (a *ListingsAPI) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.svc.Delete(r.Context(), userFrom(r).id, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshResponse struct {
	Success       bool     `json:"success"`
	Updated       bool     `json:"updated"`
	AmazonPrice   *float64 `json:"amazon_price"`
	FlipkartPrice *float64 `json:"flipkart_price"`
	AlertsFired   int      `json:"alerts_fired"`
}

func (a *ListingsAPI) refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := a.svc.Refresh(r.Context(), userFrom(r).id, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Success:       true,
		Updated:       out.Updated,
		AmazonPrice:   out.AmazonPrice,
		FlipkartPrice: out.FlipkartPrice,
		AlertsFired:   out.AlertsFired,
	})
}

func (a *ListingsAPI) chart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	points, err := a.svc.Chart(r.Context(), userFrom(r).id, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

type alertRequest struct {
	TargetPrice float64           `json:"target_price"`
	Platform    models.AlertScope `json:"platform"`
}

func (a *ListingsAPI) setAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req alertRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Platform == "" {
		req.Platform = models.ScopeBoth
	}
	u := userFrom(r)
	c, err := a.svc.SetAlert(r.Context(), u.id, u.email, id, req.TargetPrice, req.Platform)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (a *ListingsAPI) listAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := a.svc.ListAlerts(r.Context(), userFrom(r).id, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cs == nil {
		cs = []*models.PriceAlertCondition{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": cs})
}

func (a *ListingsAPI) deleteAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteAlert(r.Context(), userFrom(r).id, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
