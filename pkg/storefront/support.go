package storefront

import (
	"context"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Contact sends messages through the shop's contact form. No session is
// needed.
type Contact struct {
	shop *Shop
}

type ContactForm struct {
	Name    string
	Email   string
	Message string
}

// Send delivers the form and returns the shop's acknowledgement.
func (c *Contact) Send(ctx context.Context, form ContactForm) (string, error) {
	var res api.MessageResponse
	err := c.shop.call(ctx, http.MethodPost, api.RouteContact, api.ContactRequest{
		Name:    strings.TrimSpace(form.Name),
		Email:   normalizeEmail(form.Email),
		Message: strings.TrimSpace(form.Message),
	}, &res)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

// Messages manages received contact messages. Admin only.
type Messages struct {
	shop *Shop
}

// List returns every message, newest first.
func (m *Messages) List(ctx context.Context) ([]api.ContactMessage, error) {
	messages := []api.ContactMessage{}
	err := m.shop.get(ctx, api.RouteMessages, &messages)
	return messages, err
}

func (m *Messages) MarkRead(ctx context.Context, id int64) (*api.ContactMessage, error) {
	read := true
	return m.patch(ctx, id, api.ContactMessagePatch{IsRead: &read})
}

// MarkReplied flags a message as answered, which also marks it read.
func (m *Messages) MarkReplied(ctx context.Context, id int64) (*api.ContactMessage, error) {
	yes := true
	return m.patch(ctx, id, api.ContactMessagePatch{IsRead: &yes, Replied: &yes})
}

func (m *Messages) Delete(ctx context.Context, id int64) error {
	return m.shop.call(ctx, http.MethodDelete, api.MessagePath(id), nil, nil)
}

func (m *Messages) patch(ctx context.Context, id int64, patch api.ContactMessagePatch) (*api.ContactMessage, error) {
	message := new(api.ContactMessage)
	if err := m.shop.call(ctx, http.MethodPatch, api.MessagePath(id), patch, message); err != nil {
		return nil, err
	}
	return message, nil
}

// Analytics reads shop-wide figures. Admin only.
type Analytics struct {
	shop *Shop
}

func (a *Analytics) Get(ctx context.Context) (*api.Analytics, error) {
	analytics := new(api.Analytics)
	if err := a.shop.get(ctx, api.RouteAnalytics, analytics); err != nil {
		return nil, err
	}
	return analytics, nil
}
