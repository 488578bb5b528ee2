package fetcher

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-zA-Z0-9_\-]+)`)

// DecodeHTML converts raw page bytes to UTF-8 using the Content-Type charset
// or, failing that, a <meta charset> declaration in the first kilobyte.
// Unknown charsets leave the bytes untouched.
func DecodeHTML(raw []byte, contentType string) string {
	name := charsetFromContentType(contentType)
	if name == "" {
		head := raw
		if len(head) > 1024 {
			head = head[:1024]
		}
		if m := metaCharsetRe.FindSubmatch(head); m != nil {
			name = string(m[1])
		}
	}
	if name == "" || isUTF8Name(name) {
		return string(raw)
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(raw)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		if utf8.Valid(raw) {
			return string(raw)
		}
		return string(decoded)
	}
	return string(decoded)
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

func isUTF8Name(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == "utf-8" || n == "utf8"
}
