package fetcher

import (
	"bytes"
	"net/http"

	"github.com/rotisserie/eris"
)

// ErrBlocked is returned when the source answers with an anti-bot page
// instead of results. Blocked fetches are not retried.
var ErrBlocked = eris.New("fetcher: blocked by source")

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// jsShellMaxBytes is the size below which a noscript or meta refresh page
// is treated as a script-only shell.
const jsShellMaxBytes = 2000

// DetectBlock checks an HTTP response for signs of anti-bot protection.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	return DetectBlockBody(body)
}

// DetectBlockBody checks page content alone, for fetchers that never see
// response headers.
func DetectBlockBody(body []byte) (bool, BlockType) {
	lower := bytes.ToLower(body)
	has := func(s string) bool { return bytes.Contains(lower, []byte(s)) }

	if has("checking your browser") || has("cf-browser-verification") ||
		has("cloudflare") && has("challenge") {
		return true, BlockCloudflare
	}

	if has("captcha") {
		return true, BlockCaptcha
	}

	if len(body) < jsShellMaxBytes {
		if has("<noscript") && has("javascript") {
			return true, BlockJSShell
		}
		if has(`meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

func blockedError(kind BlockType, rawURL string) error {
	return eris.Wrapf(ErrBlocked, "%s page from %s", kind, rawURL)
}
