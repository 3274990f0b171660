package api

import (
	"context"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

type contextKey int

const userKey contextKey = iota

// authenticated resolves the bearer access token to a user and stores it on
// the request context.
func (a *API) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			returnDetail(w, http.StatusUnauthorized, api.DetailNotAuthenticated)
			return
		}

		encoded, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || encoded == "" {
			logApiErr(r, "malformed authorization header")
			returnDetail(w, http.StatusUnauthorized, api.DetailNotAuthenticated)
			return
		}

		user, err := a.service.Authenticate(encoded)
		if err != nil {
			logApiErr(r, err.Error())
			returnJson(w, http.StatusUnauthorized, api.ErrorResponse{
				Detail: api.DetailTokenNotValid,
				Code:   api.CodeTokenNotValid,
			})
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) *api.User {
	user, _ := r.Context().Value(userKey).(*api.User)
	return user
}

func (a *API) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.LoginRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		res, err := a.service.Login(req.Email, req.Password)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, res)
	}
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.RegisterRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		res, err := a.service.Register(req.Username, req.Email, req.Password)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusCreated, res)
	}
}

func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.RefreshRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if req.Refresh == "" {
			returnJson(w, http.StatusBadRequest, map[string][]string{
				"refresh": {"This field is required."},
			})
			return
		}

		res, err := a.service.RefreshTokens(req.Refresh)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, res)
	}
}

func (a *API) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := api.RefreshRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		if err := a.service.RevokeRefreshToken(req.Refresh); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusResetContent)
	}
}
