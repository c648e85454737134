package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	quarkSharePattern = regexp.MustCompile(`^https://pan\.quark\.cn/s/([a-zA-Z0-9]+)`)
	baiduSharePattern = regexp.MustCompile(`^https?://pan\.baidu\.com/s/([a-zA-Z0-9_\-]+)`)
)

// ShareKey extracts the opaque share identifier from a share URL,
// e.g. "abc123" from "https://pan.quark.cn/s/abc123?pwd=xxxx".
func ShareKey(rawURL string) (string, error) {
	if m := quarkSharePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	if m := baiduSharePattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("unrecognized share URL: %s", rawURL)
}

// StripQuery returns the URL without its query string or fragment.
func StripQuery(rawURL string) string {
	if idx := strings.IndexAny(rawURL, "?#"); idx >= 0 {
		return rawURL[:idx]
	}
	return rawURL
}

// QueryPassword extracts an inline pwd= parameter from a share URL.
// Returns an empty string when the URL carries no password.
func QueryPassword(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("pwd")
}

// IsValidShareURL reports whether the URL belongs to a supported drive.
func IsValidShareURL(rawURL string) bool {
	return quarkSharePattern.MatchString(rawURL) || baiduSharePattern.MatchString(rawURL)
}
