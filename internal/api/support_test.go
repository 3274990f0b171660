package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/storefront/internal/testutil"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

func TestAPIContact_Flow(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	admin := env.Bearer(t, env.RegisterTestAdmin(t, "root"))
	alice := env.Bearer(t, env.RegisterTestUser(t, "alice"))

	// anyone may write in
	var ack api.MessageResponse
	result := testutil.PostJSON(env.Router, "/api/contact/",
		`{"name":"Ana","email":"ana@example.com","message":"Hi there"}`, &ack)
	testutil.ExpectStatus(t, http.StatusCreated, result)
	if ack.Message != api.MessageContactReceived {
		t.Errorf("message = %q", ack.Message)
	}

	var fields map[string][]string
	result = testutil.PostJSON(env.Router, "/api/contact/", `{"name":"Ana","email":"nope"}`, &fields)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	if len(fields["email"]) == 0 || len(fields["message"]) == 0 {
		t.Errorf("unexpected fields: %v", fields)
	}

	// only admins read them
	testutil.ExpectStatus(t, http.StatusUnauthorized,
		testutil.Get(env.Router, "/api/admin/contact-messages/", nil))
	testutil.ExpectStatus(t, http.StatusForbidden,
		testutil.Get(env.Router, "/api/admin/contact-messages/", nil, alice))

	var messages []api.ContactMessage
	testutil.ExpectStatus(t, http.StatusOK,
		testutil.Get(env.Router, "/api/admin/contact-messages/", &messages, admin))
	if len(messages) != 1 || messages[0].Name != "Ana" || messages[0].IsRead {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	path := fmt.Sprintf("/api/admin/contact-messages/%d/", messages[0].ID)

	testutil.ExpectStatus(t, http.StatusForbidden,
		testutil.PatchJSON(env.Router, path, `{"is_read":true}`, nil, alice))

	var updated api.ContactMessage
	testutil.ExpectStatus(t, http.StatusOK,
		testutil.PatchJSON(env.Router, path, `{"is_read":true,"replied":true}`, &updated, admin))
	if !updated.IsRead || !updated.Replied {
		t.Errorf("unexpected message: %+v", updated)
	}

	testutil.ExpectStatus(t, http.StatusForbidden, testutil.Delete(env.Router, path, alice))
	testutil.ExpectStatus(t, http.StatusNoContent, testutil.Delete(env.Router, path, admin))
	testutil.ExpectStatus(t, http.StatusNotFound, testutil.Delete(env.Router, path, admin))
}

func TestAPIAnalytics(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	admin := env.Bearer(t, env.RegisterTestAdmin(t, "root"))
	alice := env.Bearer(t, env.RegisterTestUser(t, "alice"))
	products := env.SeedCatalog(t)
	testutil.ExpectStatus(t, http.StatusCreated, testutil.PostJSON(env.Router, "/api/orders/",
		fmt.Sprintf(`{"address":"1 Main St","items":[{"product":%d,"quantity":4}]}`, products[1].ID), nil, alice))

	testutil.ExpectStatus(t, http.StatusForbidden,
		testutil.Get(env.Router, "/api/admin/analytics/", nil, alice))

	var stats api.Analytics
	testutil.ExpectStatus(t, http.StatusOK,
		testutil.Get(env.Router, "/api/admin/analytics/", &stats, admin))
	if stats.Totals.TotalOrders != 1 || stats.Totals.TotalSales != 4*products[1].Price {
		t.Errorf("unexpected totals: %+v", stats.Totals)
	}
	if stats.StatusCounts[api.OrderPending] != 1 || len(stats.MonthlySales) != 1 {
		t.Errorf("unexpected analytics: %+v", stats)
	}

	// the public best seller list needs no session
	var top []api.Product
	testutil.ExpectStatus(t, http.StatusOK,
		testutil.Get(env.Router, "/api/products/top-selling/?limit=2", &top))
	if len(top) != 1 || top[0].ID != products[1].ID {
		t.Errorf("unexpected top selling: %+v", top)
	}
	testutil.ExpectStatus(t, http.StatusBadRequest,
		testutil.Get(env.Router, "/api/products/top-selling/?limit=many", nil))
}

func TestAPIPasswordReset_Errors(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice")

	// known and unknown emails get the same answer
	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		var ack api.MessageResponse
		result := testutil.PostJSON(env.Router, "/api/password-reset/request-otp/",
			fmt.Sprintf(`{"email":%q}`, email), &ack)
		testutil.ExpectStatus(t, http.StatusOK, result)
		if ack.Message != api.MessageResetSent {
			t.Errorf("%s: message = %q", email, ack.Message)
		}
	}

	var failure api.ResetError
	result := testutil.PostJSON(env.Router, "/api/password-reset/verify-otp/",
		`{"email":"nobody@example.com","otp":"123456","new_password":"a-new-password"}`, &failure)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	if failure.Error != api.ErrorResetCodeInvalid {
		t.Errorf("error = %q", failure.Error)
	}

	failure = api.ResetError{}
	result = testutil.PostJSON(env.Router, "/api/password-reset/verify-otp/",
		`{"email":"alice@example.com","otp":"123456","new_password":"short"}`, &failure)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
	if failure.Error == "" || failure.Error == api.ErrorResetCodeInvalid {
		t.Errorf("expected a password message, got %q", failure.Error)
	}
}
