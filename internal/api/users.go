package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func (a *API) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := a.service.ListUsers(currentUser(r))
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, users)
	}
}

func (a *API) GetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		user, err := a.service.GetUser(currentUser(r), id)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, user)
	}
}

func (a *API) UpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		patch := api.UserPatch{}
		if ok := decodeRequest(&patch, w, r); !ok {
			return
		}

		user, err := a.service.UpdateUser(currentUser(r), id, patch)
		if err != nil {
			returnError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, user)
	}
}

func (a *API) DeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := a.service.DeleteUser(currentUser(r), id); err != nil {
			returnError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
