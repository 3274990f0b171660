package service

import (
	"fmt"
	"net/mail"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

const MaxContactNameLength = 100

// SubmitContact records a message from the contact form. Anyone may send
// one.
func (s *Service) SubmitContact(
	name string,
	email string,
	message string,
) (
	*api.ContactMessage,
	error,
) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	message = strings.TrimSpace(message)

	v := &ValidationError{}
	switch {
	case name == "":
		v.add("name", "This field may not be blank.")
	case len(name) > MaxContactNameLength:
		v.add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxContactNameLength))
	}
	if email == "" {
		v.add("email", "This field may not be blank.")
	} else if _, err := mail.ParseAddress(email); err != nil {
		v.add("email", "Enter a valid email address.")
	}
	if message == "" {
		v.add("message", "This field may not be blank.")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	m, err := s.contact.InsertMessage(name, email, message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return m, nil
}

func (s *Service) ListMessages(
	actor *api.User,
) (
	[]api.ContactMessage,
	error,
) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	messages, err := s.contact.ListMessages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return messages, nil
}

func (s *Service) UpdateMessage(
	actor *api.User,
	id int64,
	patch api.ContactMessagePatch,
) (
	*api.ContactMessage,
	error,
) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	m, err := s.contact.UpdateMessage(id, patch)
	if err != nil {
		return nil, storeErr(err, fmt.Sprintf("message %d", id))
	}
	return m, nil
}

func (s *Service) DeleteMessage(
	actor *api.User,
	id int64,
) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	deleted, err := s.contact.DeleteMessage(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !deleted {
		return fmt.Errorf("%w: message %d", ErrNotFound, id)
	}
	return nil
}
