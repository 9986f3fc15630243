// Package request builds canonical HTTP request descriptors for the math AI
// backend. Building is pure: no I/O happens here and the resulting Descriptor
// is immutable once handed to a transport.
package request

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/papercomputeco/mathai/pkg/api"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"

	contentTypeJSON = "application/json"
)

// bodyMethods carry a request body. Every other allowed method folds its data
// into the query string instead.
var bodyMethods = []string{http.MethodPost, http.MethodPut, http.MethodPatch}

var queryMethods = []string{http.MethodGet, http.MethodDelete}

// TokenFunc returns the current bearer token, or "" when there is none.
type TokenFunc func() string

// Call is a logical API call before it is turned into a Descriptor.
type Call struct {
	// Path is the endpoint path relative to the base URL, optionally with
	// existing query parameters (e.g. "/v1/reference_files?source=local").
	Path string

	// Method is the HTTP method. Empty means GET.
	Method string

	// Data is folded into the query string for GET/DELETE and JSON-encoded as
	// the body for POST/PUT/PATCH.
	Data any

	// Headers are merged over the default headers.
	Headers map[string]string

	// Multipart, when set on a body method, replaces the JSON body.
	Multipart *Form
}

// Spec is the object form of a call: {url, method, data}.
type Spec struct {
	URL    string
	Method string
	Data   any
}

// Form is a multipart payload passed to the transport as-is.
type Form struct {
	Fields map[string]string
	Files  []File
}

// File is a single file part of a Form.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// New returns the bare path form of a call.
func New(path, method string, data any) Call {
	return Call{
		Path:   path,
		Method: method,
		Data:   data,
	}
}

// FromSpec returns the object form of a call. It normalizes to the same Call
// New would produce for the same values.
func FromSpec(s Spec) (Call, error) {
	if strings.TrimSpace(s.URL) == "" {
		return Call{}, &BuildError{Op: "spec", Reason: "url is required"}
	}
	return New(s.URL, s.Method, s.Data), nil
}

// WithHeaders returns a copy of c with h merged over its headers.
func (c Call) WithHeaders(h map[string]string) Call {
	merged := make(map[string]string, len(c.Headers)+len(h))
	maps.Copy(merged, c.Headers)
	maps.Copy(merged, h)
	c.Headers = merged
	return c
}

// WithStream returns a copy of c whose JSON data has "stream": true set.
// Struct data is merged through a JSON round-trip.
func WithStream(c Call) (Call, error) {
	fields := map[string]any{}
	if c.Data != nil {
		raw, err := json.Marshal(c.Data)
		if err != nil {
			return Call{}, &BuildError{Op: "stream", Reason: "encoding data", Err: err}
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return Call{}, &BuildError{Op: "stream", Reason: "data must encode to a JSON object", Err: err}
		}
		if fields == nil {
			fields = map[string]any{}
		}
	}
	fields["stream"] = true
	c.Data = fields
	return c, nil
}

// Descriptor is the canonical request handed to a transport.
type Descriptor struct {
	Method  string
	URL     string
	Headers map[string]string

	// Body is the encoded JSON body. Nil for GET/DELETE and multipart calls.
	Body []byte

	// Form is the multipart payload, if any.
	Form *Form
}

// Builder turns Calls into Descriptors against a fixed base URL.
type Builder struct {
	BaseURL string
	Token   TokenFunc
}

// NewBuilder returns a Builder for baseURL. A nil token func means requests are
// never authenticated.
func NewBuilder(baseURL string, token TokenFunc) *Builder {
	if baseURL == "" {
		baseURL = api.DefaultBaseURL
	}
	return &Builder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}
}

// Build assembles the Descriptor for call.
func (b *Builder) Build(call Call) (*Descriptor, error) {
	method := strings.ToUpper(strings.TrimSpace(call.Method))
	if method == "" {
		method = http.MethodGet
	}
	if !slices.Contains(bodyMethods, method) && !slices.Contains(queryMethods, method) {
		return nil, &BuildError{Op: "method", Reason: fmt.Sprintf("unsupported method %q", call.Method)}
	}

	path := strings.TrimSpace(call.Path)
	if path == "" {
		return nil, &BuildError{Op: "url", Reason: "path is required"}
	}
	if u, err := url.Parse(path); err != nil || u.IsAbs() {
		return nil, &BuildError{Op: "url", Reason: fmt.Sprintf("path %q must be relative to the base url", path)}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	headers := map[string]string{headerContentType: contentTypeJSON}
	for k, v := range call.Headers {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	if b.Token != nil && !api.IsUnauthenticated(path) {
		if token := b.Token(); token != "" {
			headers[headerAuthorization] = "Bearer " + token
		}
	}

	desc := &Descriptor{
		Method:  method,
		Headers: headers,
	}

	switch {
	case slices.Contains(queryMethods, method):
		if call.Multipart != nil {
			return nil, &BuildError{Op: "body", Reason: "multipart payload requires POST, PUT or PATCH"}
		}
		query, err := encodeQuery(call.Data)
		if err != nil {
			return nil, err
		}
		if query != "" {
			sep := "?"
			if strings.Contains(path, "?") {
				sep = "&"
			}
			path += sep + query
		}

	case call.Multipart != nil:
		// The transport sets the multipart boundary.
		delete(headers, headerContentType)
		desc.Form = call.Multipart

	case call.Data != nil:
		body, err := json.Marshal(call.Data)
		if err != nil {
			return nil, &BuildError{Op: "body", Reason: "encoding JSON body", Err: err}
		}
		desc.Body = body
	}

	desc.URL = b.BaseURL + path
	return desc, nil
}

// encodeQuery URL-encodes data as query parameters. Keys are sorted.
func encodeQuery(data any) (string, error) {
	switch d := data.(type) {
	case nil:
		return "", nil
	case url.Values:
		return d.Encode(), nil
	case map[string]string:
		values := url.Values{}
		for k, v := range d {
			values.Set(k, v)
		}
		return values.Encode(), nil
	case map[string][]string:
		return url.Values(d).Encode(), nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return "", &BuildError{Op: "query", Reason: "encoding query data", Err: err}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", &BuildError{Op: "query", Reason: "query data must encode to a JSON object", Err: err}
	}

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, queryValue(v))
	}
	return values.Encode(), nil
}

// queryValue renders a JSON value the way it appears in a query string:
// strings unquoted, everything else as its JSON text.
func queryValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}
