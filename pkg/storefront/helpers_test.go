package storefront_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/client"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
	"git.sr.ht/~jakintosh/storefront/pkg/storefront"
	"git.sr.ht/~jakintosh/storefront/pkg/storefronttest"
)

type env struct {
	server *storefronttest.Server
	store  *credentials.MemoryStore
	shop   *storefront.Shop
}

func setup(t *testing.T, opts ...storefronttest.Option) *env {
	t.Helper()

	server := storefronttest.New(t, opts...)
	store := credentials.NewMemoryStore()
	c, err := client.New(server.BaseURL(), store)
	require.NoError(t, err)

	return &env{
		server: server,
		store:  store,
		shop:   storefront.New(c),
	}
}

// signedIn returns an environment with a fresh user session already stored.
func signedIn(t *testing.T, opts ...storefronttest.Option) (*env, *api.User) {
	t.Helper()
	e := setup(t, opts...)
	user := e.server.CreateUser(t, "alice")
	e.server.SignIn(t, e.store, user, time.Minute)
	return e, user
}

// as gives another client, with its own session, against the same server.
func (e *env) as(t *testing.T, user *api.User) *storefront.Shop {
	t.Helper()
	store := credentials.NewMemoryStore()
	e.server.SignIn(t, store, user, time.Minute)
	c, err := client.New(e.server.BaseURL(), store)
	require.NoError(t, err)
	return storefront.New(c)
}

func (e *env) product(name string) api.Product {
	for _, p := range e.server.Products {
		if p.Name == name {
			return p
		}
	}
	return api.Product{}
}
