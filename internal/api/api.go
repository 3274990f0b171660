// Package api serves the fake storefront REST API over the service layer.
// Payloads follow the shapes in pkg/api: {"detail": ...} bodies for auth
// and lookup failures, field-to-messages maps for validation failures.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const detailServerError = "A server error occurred."

type API struct {
	service *service.Service
	prefix  string
	log     *slog.Logger
	metrics *prometheus.CounterVec
}

type Option func(*API)

func WithLogger(log *slog.Logger) Option {
	return func(a *API) { a.log = log }
}

// WithMetrics counts handled requests by method, route and status on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(a *API) {
		a.metrics = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests handled by the storefront API.",
		}, []string{"method", "route", "status"})
		reg.MustRegister(a.metrics)
	}
}

func New(
	svc *service.Service,
	prefix string,
	opts ...Option,
) *API {
	a := &API{
		service: svc,
		prefix:  prefix,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil {
		logApiErr(r, "bad json request")
		returnJson(w, http.StatusBadRequest, api.ErrorResponse{
			Detail: fmt.Sprintf("JSON parse error - %v", err),
		})
		return false
	}
	return true
}

func returnJson(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func returnDetail(w http.ResponseWriter, status int, detail string) {
	returnJson(w, status, api.ErrorResponse{Detail: detail})
}

func logApiErr(r *http.Request, msg string) {
	slog.Warn(fmt.Sprintf("%s %s: %s", r.Method, r.RequestURI, msg),
		"request_id", r.Header.Get("X-Request-Id"))
}

// returnError maps a service error onto its status and body.
func returnError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *service.ValidationError
	switch {
	case errors.As(err, &invalid):
		returnJson(w, http.StatusBadRequest, invalid.Fields)

	case errors.Is(err, service.ErrCartEmpty):
		returnDetail(w, http.StatusBadRequest, api.DetailCartEmpty)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrAccountNotFound):
		logApiErr(r, err.Error())
		returnDetail(w, http.StatusUnauthorized, api.DetailNoAccount)

	case errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrTokenNotFound):
		logApiErr(r, err.Error())
		returnJson(w, http.StatusUnauthorized, api.ErrorResponse{
			Detail: api.DetailRefreshNotValid,
			Code:   api.CodeTokenNotValid,
		})

	case errors.Is(err, service.ErrForbidden):
		returnDetail(w, http.StatusForbidden, api.DetailForbidden)

	case errors.Is(err, service.ErrNotFound):
		returnDetail(w, http.StatusNotFound, api.DetailNotFound)

	default:
		logApiErr(r, err.Error())
		returnDetail(w, http.StatusInternalServerError, detailServerError)
	}
}

// pathID reads the numeric {id} route variable. The router only matches
// digits, so a failure here means the id overflowed.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		returnDetail(w, http.StatusNotFound, api.DetailNotFound)
		return 0, false
	}
	return id, true
}
