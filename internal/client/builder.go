package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	internalhttp "github.com/fivetwenty-io/ledgerdesk/internal/http"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/google/uuid"
)

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
	http.MethodHead:   true,
}

// build turns a caller request into the descriptor sent on every attempt.
// The returned token is the session token when it is the credential that
// goes out, and "" when the caller replaced or suppressed it.
func (c *Client) build(req *ledger.Request, opts *ledger.CallOptions) (*internalhttp.Request, string, *ledger.Failure) {
	method := strings.ToUpper(req.Method)
	if !supportedMethods[method] {
		return nil, "", invalidRequest("unsupported method %q", req.Method)
	}

	path, query, failure := splitPath(req.Path, req.Query)
	if failure != nil {
		return nil, "", failure
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, "", invalidRequest("encoding request body: %v", err).WithCause(err)
	}

	timeout, retries := c.defaults()

	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	if opts.HasRetries {
		if opts.MaxRetries < 0 {
			return nil, "", invalidRequest("%v", ledger.ErrNegativeRetries).WithCause(ledger.ErrNegativeRetries)
		}

		retries = opts.MaxRetries
	}

	headers := map[string]string{"Accept": constants.ContentTypeJSON}
	if contentType != "" {
		headers["Content-Type"] = contentType
	}

	for key, value := range c.headers {
		headers[http.CanonicalHeaderKey(key)] = value
	}

	var token string
	if !opts.SkipAuth {
		token = c.credentials.Token()
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}

	headers[constants.HeaderRequestID] = uuid.NewString()

	for key, value := range opts.Headers {
		headers[http.CanonicalHeaderKey(key)] = value
	}

	if token != "" && headers["Authorization"] != "Bearer "+token {
		token = ""
	}

	return &internalhttp.Request{
		Method:            method,
		Path:              path,
		Query:             query,
		Body:              body,
		Headers:           headers,
		Timeout:           timeout,
		MaxRetries:        retries,
		RetryServerErrors: c.retryServerErrors,
	}, token, nil
}

// splitPath validates a relative path and folds any inline query string
// into query.
func splitPath(path string, query url.Values) (string, url.Values, *ledger.Failure) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil, invalidRequest("path is required")
	}

	if strings.Contains(path, "://") {
		return "", nil, invalidRequest("path %q must be relative to the base URL", path)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	rawPath, rawQuery, found := strings.Cut(path, "?")
	if !found {
		return path, query, nil
	}

	inline, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, invalidRequest("parsing query in path %q: %v", path, err).WithCause(err)
	}

	merged := url.Values{}

	for key, values := range inline {
		merged[key] = append(merged[key], values...)
	}

	for key, values := range query {
		merged[key] = append(merged[key], values...)
	}

	return rawPath, merged, nil
}

// encodeBody returns the wire bytes of body and the content type to send
// with them. Strings are sent untouched as JSON text; binary payloads carry
// no content type unless they name one.
func encodeBody(body interface{}) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), constants.ContentTypeJSON, nil
	case []byte:
		return b, "", nil
	case ledger.Binary:
		return b.Data, b.ContentType, nil
	case *ledger.Binary:
		if b == nil {
			return nil, "", nil
		}

		return b.Data, b.ContentType, nil
	case *ledger.MultipartForm:
		return encodeMultipart(b)
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, "", fmt.Errorf("reading body: %w", err)
		}

		return data, "", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("marshaling %T: %w", body, err)
		}

		return data, constants.ContentTypeJSON, nil
	}
}

func encodeMultipart(form *ledger.MultipartForm) ([]byte, string, error) {
	if form == nil {
		return nil, "", nil
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	fields := make([]string, 0, len(form.Fields))
	for name := range form.Fields {
		fields = append(fields, name)
	}

	sort.Strings(fields)

	for _, name := range fields {
		if err := writer.WriteField(name, form.Fields[name]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", name, err)
		}
	}

	for _, file := range form.Files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating form file %s: %w", file.Field, err)
		}

		if file.Content != nil {
			if _, err := io.Copy(part, file.Content); err != nil {
				return nil, "", fmt.Errorf("copying form file %s: %w", file.Field, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

func invalidRequest(format string, args ...interface{}) *ledger.Failure {
	return ledger.NewFailure(ledger.KindInvalidRequest, 0, fmt.Sprintf(format, args...))
}
