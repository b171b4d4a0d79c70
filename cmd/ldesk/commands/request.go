package commands

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/spf13/cobra"
)

var shapes = map[string]ledger.Shape{
	"raw":      ledger.ShapeRaw,
	"envelope": ledger.ShapeEnvelope,
	"items":    ledger.ShapeItems,
}

// NewRequestCommands creates one command per HTTP method for sending raw
// requests to the API.
func NewRequestCommands() []*cobra.Command {
	return []*cobra.Command{
		newRequestCommand(http.MethodGet, false),
		newRequestCommand(http.MethodPost, true),
		newRequestCommand(http.MethodPut, true),
		newRequestCommand(http.MethodPatch, true),
		newRequestCommand(http.MethodDelete, false),
	}
}

func newRequestCommand(method string, withBody bool) *cobra.Command {
	var (
		data    string
		query   []string
		headers []string
		shape   string
	)

	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " PATH",
		Short: "Send a " + method + " request",
		Long: fmt.Sprintf(`Send an authenticated %s request to PATH, relative to the API base URL.

The per-attempt timeout and the retry budget follow --timeout and --retries.`, method),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseQuery(query)
			if err != nil {
				return err
			}

			opts, err := requestOptions(headers, shape)
			if err != nil {
				return err
			}

			req := &ledger.Request{
				Method:  method,
				Path:    args[0],
				Query:   params,
				Options: opts,
			}

			if data != "" {
				body, err := readBody(data)
				if err != nil {
					return err
				}

				req.Body = body
			}

			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			raw, err := client.Do(cmd.Context(), req).Unwrap()
			if err != nil {
				return fmt.Errorf("%w: %w", constants.ErrRequestFailed, err)
			}

			return renderRaw(cmd.OutOrStdout(), raw)
		},
	}

	if withBody {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body, or @FILE to read it from a file")
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header as key=value (repeatable)")
	cmd.Flags().StringVar(&shape, "shape", "raw", "response shape (raw, envelope, items)")

	return cmd
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := url.Values{}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidQueryParam, pair)
		}

		values.Add(key, value)
	}

	return values, nil
}

func requestOptions(headers []string, shape string) ([]ledger.CallOption, error) {
	selected, ok := shapes[shape]
	if !ok {
		return nil, fmt.Errorf("unsupported response shape %q (raw, envelope, items)", shape)
	}

	opts := []ledger.CallOption{ledger.ExpectShape(selected)}

	for _, header := range headers {
		key, value, ok := strings.Cut(header, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, expected key=value", header)
		}

		opts = append(opts, ledger.CallHeader(key, value))
	}

	return opts, nil
}

// readBody returns the request body, reading it from a file for @FILE.
func readBody(data string) (string, error) {
	path, fromFile := strings.CutPrefix(data, "@")
	if !fromFile {
		return data, nil
	}

	// #nosec G304 -- the user names the file to send
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	return string(contents), nil
}
