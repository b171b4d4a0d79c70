package client

import (
	"net/url"
	"strings"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
)

// Declared response layouts shared by the resource clients.
var (
	envelopeShape = ledger.ExpectShape(ledger.ShapeEnvelope)
	itemsShape    = ledger.ExpectShape(ledger.ShapeItems)
)

// resourcePath joins base with escaped path segments. An empty segment is
// a caller mistake and is reported before anything is sent.
func resourcePath(base string, segments ...string) (string, *ledger.Failure) {
	var b strings.Builder

	b.WriteString(base)

	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return "", invalidRequest("empty path segment after %s", base)
		}

		b.WriteByte('/')
		b.WriteString(url.PathEscape(segment))
	}

	return b.String(), nil
}
