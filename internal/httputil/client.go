package httputil

import (
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/k3a/html2text"
)

const DefaultTimeout = 10 * time.Second

// maxSnippet bounds how much of an error body ends up in logs.
const maxSnippet = 256

// NewClient returns an HTTP client with the given timeout, or DefaultTimeout
// when timeout is not positive.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// BodySnippet reads a bounded prefix of an error response body for logging.
// HTML bodies (proxy and CDN error pages) are flattened to text.
func BodySnippet(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	s := string(b)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || strings.HasPrefix(strings.TrimSpace(s), "<") {
		s = html2text.HTML2Text(s)
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSnippet {
		n := maxSnippet
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n] + "..."
	}
	return s
}
