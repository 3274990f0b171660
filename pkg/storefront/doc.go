/*
Package storefront is a typed SDK for the storefront API, built on the
refreshing client in pkg/client.

# Quick Start

	store, _ := credentials.NewFileStore(path)
	c, _ := client.New("http://127.0.0.1:8000/api", store)
	shop := storefront.New(c)

	user, err := shop.Auth.Login(ctx, "alice@example.com", "password123")
	products, err := shop.Products.List(ctx, "")
	_, err = shop.Cart.Add(ctx, products[0].ID)
	order, err := shop.Orders.Create(ctx, "1 Main St")

Every call goes through the client, so an expired access token is renewed
transparently and concurrent calls share a single refresh. Sign-in calls
(Login, Register) and the password reset calls opt out of refresh: their
401 means bad credentials.

# Errors

Failures from the API arrive as *client.Error. The SDK adds sentinels for
outcomes callers usually branch on: ErrInvalidCredentials, ErrAccountBlocked,
ErrEmailTaken, ErrUsernameTaken, ErrInvalidRegistration, ErrAlreadyInWishlist,
ErrOrderNotOwned, ErrResetCodeInvalid, ErrResetRefused, ErrNotSignedIn.
*/
package storefront
