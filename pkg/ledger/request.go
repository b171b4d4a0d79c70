package ledger

import (
	"io"
	"net/url"
	"time"
)

// Shape is the response layout an endpoint promises on success.
type Shape int

const (
	// ShapeRaw returns the parsed body as is.
	ShapeRaw Shape = iota
	// ShapeEnvelope unwraps {"success": bool, "data": ...}.
	ShapeEnvelope
	// ShapeItems unwraps {"items": [...]}.
	ShapeItems
)

func (s Shape) String() string {
	switch s {
	case ShapeEnvelope:
		return "envelope"
	case ShapeItems:
		return "items"
	default:
		return "raw"
	}
}

// Request describes one logical call for Client.Do.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless it is a string, []byte, Binary, io.Reader
	// or *MultipartForm.
	Body    interface{}
	Options []CallOption
}

// CallOptions holds per-call overrides. Zero values mean "use the client default".
type CallOptions struct {
	Timeout    time.Duration
	MaxRetries int
	HasRetries bool
	Headers    map[string]string
	Shape      Shape

	// SkipSessionClear keeps the session when this call returns Unauthorized.
	SkipSessionClear bool
	// SkipAuth omits the bearer header even when a session exists.
	SkipAuth bool
}

// CallOption customizes a single call.
type CallOption func(*CallOptions)

// ApplyCallOptions folds opts into a CallOptions value.
func ApplyCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// CallTimeout overrides the per-attempt timeout for one call.
func CallTimeout(d time.Duration) CallOption {
	return func(o *CallOptions) {
		o.Timeout = d
	}
}

// CallRetries overrides the retry budget for one call. Zero disables retries.
func CallRetries(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxRetries = n
		o.HasRetries = true
	}
}

// CallHeader adds a header for one call. It wins over client defaults.
func CallHeader(key, value string) CallOption {
	return func(o *CallOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// ExpectShape declares the success layout of the endpoint being called.
func ExpectShape(s Shape) CallOption {
	return func(o *CallOptions) {
		o.Shape = s
	}
}

// KeepSessionOnUnauthorized prevents an Unauthorized result from clearing
// the session. Used by login, where a 401 means bad credentials.
func KeepSessionOnUnauthorized() CallOption {
	return func(o *CallOptions) {
		o.SkipSessionClear = true
	}
}

// Anonymous sends the call without the bearer header.
func Anonymous() CallOption {
	return func(o *CallOptions) {
		o.SkipAuth = true
	}
}

// Binary marks a body to be sent untouched with the given content type.
type Binary struct {
	ContentType string
	Data        []byte
}

// MultipartForm is encoded as multipart/form-data.
type MultipartForm struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is one file part of a MultipartForm.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}
