package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/submerge-go/internal/model"
)

// DefaultUserAgent identifies this service to upstream subscription
// providers. Some providers gate output format on the UA, so it stays fixed.
const DefaultUserAgent = "submerge-go/1.0"

const stage = "fetch_link"

type Options struct {
	Timeout      time.Duration // default 10s
	MaxBytes     int64         // default 5 MiB
	MaxRedirects int           // default 5
	UserAgent    string        // default DefaultUserAgent
}

type FetchError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects   = errors.New("too many redirects")
	errRedirectBadScheme  = errors.New("redirect target scheme is not http/https")
	errInvalidURLOrScheme = errors.New("invalid url or scheme")
)

// FetchEntries resolves one link reference into the individual entry lines it
// carries. A reference is either an embedded data: payload (decoded locally,
// no network) or an http/https URL pointing at a remote subscription feed.
//
// Failures are returned as *FetchError; the aggregator absorbs them into an
// empty contribution, but admin-side callers still see the cause.
func FetchEntries(ctx context.Context, linkRef string) ([]string, error) {
	return FetchEntriesWithOptions(ctx, linkRef, Options{})
}

func FetchEntriesWithOptions(ctx context.Context, linkRef string, opt Options) ([]string, error) {
	linkRef = strings.TrimSpace(linkRef)
	if strings.HasPrefix(linkRef, "data:") {
		return decodeEmbedded(linkRef)
	}
	text, err := fetchRemoteText(ctx, linkRef, opt)
	if err != nil {
		return nil, err
	}

	// Upstream providers inconsistently return either a raw plaintext node
	// list or a base64 blob of the same. Try whole-body base64 first, fall
	// back to plain text. A plaintext body that happens to be valid base64
	// is misread as encoded; that ambiguity is inherited from the upstream
	// ecosystem and kept for compatibility.
	if decoded, err := decodeB64ToBytes(removeSpaceTabCRLF(text)); err == nil && utf8.Valid(decoded) {
		return splitEntries(string(decoded)), nil
	}
	return splitEntries(text), nil
}

// decodeEmbedded handles data:<mediatype>;base64,<content> references. Only
// the part after the first comma matters; the mediatype is not validated.
func decodeEmbedded(linkRef string) ([]string, error) {
	_, payload, ok := strings.Cut(linkRef, ",")
	if !ok {
		return nil, &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "DECODE_FAILED",
				Message: "data: 链接缺少逗号分隔的内容",
				Stage:   stage,
				Snippet: truncateSnippet(linkRef, 200),
			},
		}
	}
	decoded, err := decodeB64ToBytes(removeSpaceTabCRLF(payload))
	if err != nil {
		return nil, &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "DECODE_FAILED",
				Message: "data: 链接 base64 解码失败",
				Stage:   stage,
				Snippet: truncateSnippet(linkRef, 200),
			},
			Cause: err,
		}
	}
	if !utf8.Valid(decoded) {
		return nil, &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "DECODE_FAILED",
				Message: "data: 链接内容不是合法 UTF-8 文本",
				Stage:   stage,
				Snippet: truncateSnippet(linkRef, 200),
			},
		}
	}
	return splitEntries(string(decoded)), nil
}

func fetchRemoteText(ctx context.Context, rawURL string, opt Options) (string, error) {
	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxRedirects := opt.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}
	maxBytes := opt.MaxBytes
	if maxBytes == 0 {
		maxBytes = 5 * 1024 * 1024
	}
	userAgent := opt.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "仅允许 http/https 或 data: 链接",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: errors.Join(errInvalidURLOrScheme, err),
		}
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// via is the chain of previous requests; allow up to
			// maxRedirects redirects.
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "请求 URL 不合法",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}

		// CheckRedirect sentinel errors.
		if errors.Is(err, errTooManyRedirects) {
			return "", &FetchError{
				Status: http.StatusBadGateway,
				AppError: model.AppError{
					Code:    "FETCH_FAILED",
					Message: fmt.Sprintf("重定向次数超过上限（>%d）", maxRedirects),
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		if errors.Is(err, errRedirectBadScheme) {
			return "", &FetchError{
				Status: http.StatusBadRequest,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "重定向目标仅允许 http/https",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}

		// Timeout detection: Go may wrap errors (e.g. *url.Error).
		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return "", &FetchError{
				Status: http.StatusGatewayTimeout,
				AppError: model.AppError{
					Code:    "FETCH_TIMEOUT",
					Message: "拉取上游订阅超时",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}

		return "", &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "拉取上游订阅失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode),
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", &FetchError{
				Status: http.StatusGatewayTimeout,
				AppError: model.AppError{
					Code:    "FETCH_TIMEOUT",
					Message: "拉取上游订阅超时",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		return "", &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "读取上游响应失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	if int64(len(body)) > maxBytes {
		return "", &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "TOO_LARGE",
				Message: fmt.Sprintf("上游订阅过大（>%d bytes）", maxBytes),
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}
	if !utf8.Valid(body) {
		return "", &FetchError{
			Status: http.StatusUnprocessableEntity,
			AppError: model.AppError{
				Code:    "FETCH_INVALID_UTF8",
				Message: "上游订阅不是合法 UTF-8 文本",
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	return string(body), nil
}

// splitEntries breaks feed text into entry lines. Entries are opaque: they
// are trimmed and empty lines are dropped, nothing else is interpreted.
func splitEntries(text string) []string {
	lines := strings.Split(stripUTF8BOM(text), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
