package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-Id"
	HeaderContentType   = "Content-Type"

	contentTypeJSON = "application/json"
)

// Request describes one API call. It is built once and replayed verbatim
// after a refresh; only the Authorization header changes between attempts.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// Retried is set once the request has been replayed after an
	// unauthorized response. A retried request is never replayed again.
	Retried bool

	payload []byte
	hasBody bool
}

// Payload returns the encoded body exactly as it is sent on the wire.
func (r *Request) Payload() []byte { return r.payload }

// RequestOption adjusts a Request before it is encoded.
type RequestOption func(*Request)

func WithHeader(key, value string) RequestOption {
	return func(r *Request) { r.Header.Set(key, value) }
}

func WithQuery(query url.Values) RequestOption {
	return func(r *Request) {
		for key, values := range query {
			for _, v := range values {
				r.Query.Add(key, v)
			}
		}
	}
}

// WithoutRefresh marks the request as already retried, so an unauthorized
// response is returned as is instead of starting a refresh. Sign-in calls
// use it: their 401 means bad credentials, not an expired session.
func WithoutRefresh() RequestOption {
	return func(r *Request) { r.Retried = true }
}

// WithContentType sets the content type for raw ([]byte or io.Reader) bodies.
func WithContentType(contentType string) RequestOption {
	return WithHeader(HeaderContentType, contentType)
}

// NewRequest builds and encodes a request descriptor. The body is encoded
// here, once:
//   - nil sends no body
//   - *Form sends multipart/form-data
//   - []byte and io.Reader are sent raw
//   - anything else is sent as JSON
func NewRequest(
	method string,
	path string,
	body any,
	opts ...RequestOption,
) (
	*Request,
	error,
) {
	r := &Request{
		Method: strings.ToUpper(method),
		Path:   path,
		Query:  url.Values{},
		Body:   body,
		Header: http.Header{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.encode(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Request) encode() error {
	switch body := r.Body.(type) {
	case nil:
		return nil
	case *Form:
		payload, contentType, err := body.encode()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		r.payload = payload
		r.Header.Set(HeaderContentType, contentType)
	case []byte:
		r.payload = body
		r.defaultContentType("application/octet-stream")
	case io.Reader:
		payload, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		r.payload = payload
		r.defaultContentType("application/octet-stream")
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		r.payload = payload
		r.Header.Set(HeaderContentType, contentTypeJSON)
	}
	r.hasBody = true
	return nil
}

func (r *Request) defaultContentType(contentType string) {
	if r.Header.Get(HeaderContentType) == "" {
		r.Header.Set(HeaderContentType, contentType)
	}
}

// build creates the wire request for one attempt. access may be empty.
func (r *Request) build(
	baseURL string,
	access string,
) (
	*http.Request,
	error,
) {
	target := joinURL(baseURL, r.Path)
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	var body io.Reader
	if r.hasBody {
		body = bytes.NewReader(r.payload)
	}
	req, err := http.NewRequest(r.Method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header = r.Header.Clone()
	if access != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+access)
	} else {
		req.Header.Del(HeaderAuthorization)
	}
	return req, nil
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Form is a multipart/form-data body. Fields keep insertion order.
type Form struct {
	fields []formField
	files  []FormFile
}

type formField struct {
	name  string
	value string
}

type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

func (f *Form) AddFile(field, filename string, content []byte) *Form {
	f.files = append(f.files, FormFile{Field: field, Filename: filename, Content: content})
	return f
}

func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
