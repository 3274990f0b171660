package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (a *API) SendContact() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.ContactRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if _, err := a.service.SubmitContact(req.Name, req.Email, req.Message); err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, api.MessageResponse{Message: api.MessageContactReceived})
	}
}

func (a *API) ListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := a.service.ListMessages(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, messages)
	}
}

func (a *API) UpdateMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		patch := api.ContactMessagePatch{}
		if ok := decodeRequest(&patch, w, r); !ok {
			return
		}

		message, err := a.service.UpdateMessage(currentUser(r), id, patch)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, message)
	}
}

func (a *API) DeleteMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := a.service.DeleteMessage(currentUser(r), id); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) GetAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analytics, err := a.service.Analytics(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, analytics)
	}
}

// TopSelling reads an optional limit query parameter.
func (a *API) TopSelling() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				returnJson(w, http.StatusBadRequest, map[string][]string{
					"limit": {"A valid integer is required."},
				})
				return
			}
			limit = n
		}
		products, err := a.service.TopSelling(limit)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, products)
	}
}

func (a *API) RequestPasswordReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.ResetRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if err := a.service.RequestPasswordReset(req.Email); err != nil {
			returnResetError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, api.MessageResponse{Message: api.MessageResetSent})
	}
}

func (a *API) ResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.ResetVerifyRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if err := a.service.ResetPassword(req.Email, req.OTP, req.NewPassword); err != nil {
			returnResetError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, api.MessageResponse{Message: api.MessageResetDone})
	}
}

// returnResetError answers password reset failures with a single
// {"error": ...} message instead of a field map.
func returnResetError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *service.ValidationError
	switch {
	case errors.As(err, &invalid):
		returnJson(w, http.StatusBadRequest, api.ResetError{Error: firstMessage(invalid)})

	case errors.Is(err, service.ErrResetCodeInvalid):
		logApiErr(r, err.Error())
		returnJson(w, http.StatusBadRequest, api.ResetError{Error: api.ErrorResetCodeInvalid})

	default:
		returnError(w, r, err)
	}
}

func firstMessage(v *service.ValidationError) string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if msgs := v.Fields[field]; len(msgs) > 0 {
			return msgs[0]
		}
	}
	return api.ErrorResetCodeInvalid
}
