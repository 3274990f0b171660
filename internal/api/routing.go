package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const idVar = "{id:[0-9]+}/"

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	a.Mount(r)
	return r
}

// Mount registers every API route under the prefix on r.
func (a *API) Mount(r *mux.Router) {
	s := r.PathPrefix(a.prefix).Subrouter()
	s.Use(a.requestID)
	if a.metrics != nil {
		s.Use(a.countRequests)
	}

	// public
	s.HandleFunc(api.RouteLogin, a.Login()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteRegister, a.Register()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteRefresh, a.Refresh()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteLogout, a.Logout()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteProducts, a.ListProducts()).Methods(http.MethodGet)
	s.HandleFunc(api.RouteCategory, a.ListCategory()).Methods(http.MethodGet)
	s.HandleFunc(api.RouteTopSelling, a.TopSelling()).Methods(http.MethodGet)
	s.HandleFunc(api.RouteProducts+idVar, a.GetProduct()).Methods(http.MethodGet)
	s.HandleFunc(api.RouteMedia+"{name}", a.GetImage()).Methods(http.MethodGet)
	s.HandleFunc(api.RouteContact, a.SendContact()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteResetRequest, a.RequestPasswordReset()).Methods(http.MethodPost)
	s.HandleFunc(api.RouteResetVerify, a.ResetPassword()).Methods(http.MethodPost)

	// signed in; kept on s so a wrong method still answers 405
	p := &authRoutes{router: s, authenticated: a.authenticated}

	p.HandleFunc(api.RouteProducts, a.CreateProduct()).Methods(http.MethodPost)
	p.HandleFunc(api.RouteProducts+idVar, a.UpdateProduct()).Methods(http.MethodPut, http.MethodPatch)
	p.HandleFunc(api.RouteProducts+idVar, a.DeleteProduct()).Methods(http.MethodDelete)

	p.HandleFunc(api.RouteCart, a.ListCart()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteCart, a.AddToCart()).Methods(http.MethodPost)
	p.HandleFunc(api.RouteCart+idVar, a.GetCartItem()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteCart+idVar, a.UpdateCartItem()).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc(api.RouteCart+idVar, a.RemoveCartItem()).Methods(http.MethodDelete)

	p.HandleFunc(api.RouteWishlist, a.ListWishlist()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteWishlist, a.AddToWishlist()).Methods(http.MethodPost)
	p.HandleFunc(api.RouteWishlist+idVar, a.RemoveFromWishlist()).Methods(http.MethodDelete)

	p.HandleFunc(api.RouteOrders, a.ListOrders()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteOrders, a.CreateOrder()).Methods(http.MethodPost)
	p.HandleFunc(api.RouteOrders+idVar, a.GetOrder()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteOrders+idVar, a.UpdateOrder()).Methods(http.MethodPatch, http.MethodPut)

	p.HandleFunc(api.RouteUsers, a.ListUsers()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteUsers+idVar, a.GetUser()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteUsers+idVar, a.UpdateUser()).Methods(http.MethodPatch, http.MethodPut)
	p.HandleFunc(api.RouteUsers+idVar, a.DeleteUser()).Methods(http.MethodDelete)

	p.HandleFunc(api.RouteMessages, a.ListMessages()).Methods(http.MethodGet)
	p.HandleFunc(api.RouteMessages+idVar, a.UpdateMessage()).Methods(http.MethodPatch)
	p.HandleFunc(api.RouteMessages+idVar, a.DeleteMessage()).Methods(http.MethodDelete)
	p.HandleFunc(api.RouteAnalytics, a.GetAnalytics()).Methods(http.MethodGet)
}

// authRoutes registers handlers behind the authentication middleware
// without giving them a subrouter of their own.
type authRoutes struct {
	router        *mux.Router
	authenticated mux.MiddlewareFunc
}

func (p *authRoutes) HandleFunc(path string, h http.HandlerFunc) *mux.Route {
	return p.router.Handle(path, p.authenticated(h))
}

// requestID echoes the caller's X-Request-Id on the response.
func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-Id"); id != "" {
			w.Header().Set("X-Request-Id", id)
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (a *API) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		a.metrics.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}
