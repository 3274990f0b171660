package api

import "fmt"

const (
	DefaultPrefix = "/api"

	RouteLogin    = "/login/"
	RouteRegister = "/register/"
	RouteRefresh  = "/token/refresh/"
	RouteLogout   = "/logout/"

	RouteProducts = "/products/"
	RouteCategory = "/products/category/"
	RouteCart     = "/cart/"
	RouteWishlist = "/wishlist/"
	RouteOrders   = "/orders/"
	RouteUsers    = "/users/"
	RouteMedia    = "/media/"

	RouteTopSelling   = "/products/top-selling/"
	RouteContact      = "/contact/"
	RouteMessages     = "/admin/contact-messages/"
	RouteAnalytics    = "/admin/analytics/"
	RouteResetRequest = "/password-reset/request-otp/"
	RouteResetVerify  = "/password-reset/verify-otp/"
)

func ProductPath(id int64) string  { return fmt.Sprintf("%s%d/", RouteProducts, id) }
func CartItemPath(id int64) string { return fmt.Sprintf("%s%d/", RouteCart, id) }
func WishlistPath(id int64) string { return fmt.Sprintf("%s%d/", RouteWishlist, id) }
func OrderPath(id int64) string    { return fmt.Sprintf("%s%d/", RouteOrders, id) }
func UserPath(id int64) string     { return fmt.Sprintf("%s%d/", RouteUsers, id) }
func MessagePath(id int64) string  { return fmt.Sprintf("%s%d/", RouteMessages, id) }
