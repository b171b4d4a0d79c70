package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	internalhttp "github.com/fivetwenty-io/ledgerdesk/internal/http"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

const maxPlainMessageLength = 256

var nullJSON = json.RawMessage("null")

// normalize converts the outcome of the retry loop into a Result. token is
// the bearer token the request was sent with.
func (c *Client) normalize(ctx context.Context, resp *internalhttp.Response, err error, opts *ledger.CallOptions, token string) ledger.Result[json.RawMessage] {
	if err != nil {
		return ledger.Fail[json.RawMessage](transportFailure(err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		failure := &ledger.Failure{
			Kind:     ledger.KindForStatus(resp.StatusCode),
			Status:   resp.StatusCode,
			Message:  serverMessage(resp.Body, resp.StatusCode),
			Attempts: resp.Attempts,
		}

		if failure.Kind == ledger.KindUnauthorized && !opts.SkipSessionClear {
			c.dropRejectedSession(ctx, token)
		}

		return ledger.Fail[json.RawMessage](failure)
	}

	data, failure := applyShape(resp.Body, opts.Shape)
	if failure != nil {
		failure.Status = resp.StatusCode
		failure.Attempts = resp.Attempts

		return ledger.Fail[json.RawMessage](failure)
	}

	return ledger.Succeed(data)
}

// dropRejectedSession clears the session when the server rejected the token
// it currently holds. A token replaced by a newer login is left alone.
func (c *Client) dropRejectedSession(ctx context.Context, token string) {
	if token == "" || c.credentials.Token() != token {
		return
	}

	if c.logger != nil {
		c.logger.Debug("Clearing session after unauthorized response", nil)
	}

	c.credentials.Clear(ctx)
}

func transportFailure(err error) *ledger.Failure {
	var giveUp *internalhttp.GiveUpError
	if errors.As(err, &giveUp) {
		failure := ledger.NewFailure(giveUp.Kind, 0, giveUp.Error()).WithCause(giveUp.Err)
		failure.Attempts = giveUp.Attempts

		return failure
	}

	return ledger.NewFailure(ledger.KindNetwork, 0, err.Error()).WithCause(err)
}

// applyShape extracts the payload an endpoint declared.
func applyShape(body []byte, shape ledger.Shape) (json.RawMessage, *ledger.Failure) {
	body = bytes.TrimSpace(body)

	if len(body) == 0 {
		if shape == ledger.ShapeRaw {
			return nullJSON, nil
		}

		return nil, ledger.NewFailure(ledger.KindParseError, 0, fmt.Sprintf("empty response body, expected %s", shape))
	}

	if !json.Valid(body) {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "response body is not valid JSON")
	}

	switch shape {
	case ledger.ShapeEnvelope:
		return unwrapEnvelope(body)
	case ledger.ShapeItems:
		return unwrapItems(body)
	default:
		return json.RawMessage(body), nil
	}
}

func unwrapEnvelope(body []byte) (json.RawMessage, *ledger.Failure) {
	var envelope struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "expected an envelope object").WithCause(err)
	}

	if envelope.Success == nil {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "envelope has no success field")
	}

	if !*envelope.Success {
		message := extractMessage(body)
		if message == "" {
			message = "request was not successful"
		}

		return nil, ledger.NewFailure(ledger.KindValidation, 0, message)
	}

	if len(envelope.Data) == 0 {
		return nullJSON, nil
	}

	return envelope.Data, nil
}

func unwrapItems(body []byte) (json.RawMessage, *ledger.Failure) {
	var list struct {
		Items json.RawMessage `json:"items"`
	}

	if err := json.Unmarshal(body, &list); err != nil {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "expected an object with items").WithCause(err)
	}

	if len(list.Items) == 0 {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "response has no items field")
	}

	if string(list.Items) == "null" {
		return json.RawMessage("[]"), nil
	}

	if list.Items[0] != '[' {
		return nil, ledger.NewFailure(ledger.KindParseError, 0, "items is not an array")
	}

	return list.Items, nil
}

// serverMessage picks the message a server attached to an error response,
// falling back to the status text.
func serverMessage(body []byte, status int) string {
	body = bytes.TrimSpace(body)

	if message := extractMessage(body); message != "" {
		return message
	}

	if len(body) > 0 && len(body) <= maxPlainMessageLength && !json.Valid(body) {
		return string(body)
	}

	if text := http.StatusText(status); text != "" {
		return text
	}

	return fmt.Sprintf("HTTP %d", status)
}

func extractMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	for _, key := range []string{"message", "error_description", "detail", "error"} {
		if message := stringOrMessage(payload[key]); message != "" {
			return message
		}
	}

	var errs []struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(payload["errors"], &errs); err == nil && len(errs) > 0 {
		if errs[0].Detail != "" {
			return errs[0].Detail
		}

		return errs[0].Message
	}

	return ""
}

// stringOrMessage reads either "text" or {"message": "text"}.
func stringOrMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var nested struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(raw, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}

	return ""
}
