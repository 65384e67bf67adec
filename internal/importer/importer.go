// Package importer converts client proxy configurations into share-link
// strings so existing outbound definitions can be folded into a group's link
// set. Two input formats are recognized: a JSON document with a top-level
// outbounds array (vmess/vless), and a Clash YAML document (ss proxies).
package importer

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/John-Robertt/submerge-go/internal/model"
)

type ImportError struct {
	AppError model.AppError
	Cause    error
}

func (e *ImportError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ImportError) Unwrap() error { return e.Cause }

func newImportError(code, message, hint string, cause error) error {
	return &ImportError{
		AppError: model.AppError{
			Code:    code,
			Message: message,
			Stage:   "import_config",
			Hint:    hint,
		},
		Cause: cause,
	}
}

func pctEncode(s string) string {
	// RFC 3986 percent-encoding for query/fragment. Go's QueryEscape uses
	// '+' for spaces, which we rewrite to %20 to avoid ambiguity.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// uriHost wraps IPv6 literals in brackets for use in a URI authority.
func uriHost(host string) string {
	if strings.Contains(host, ":") && !(strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]")) {
		return "[" + host + "]"
	}
	return host
}
