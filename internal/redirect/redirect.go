// Package redirect unwraps provider redirect links of the form
// https://provider/...?url=<destination>.
//
// Decoding is best effort. Opaque schemes (for example Google News
// /articles/<token> links) are returned unchanged.
package redirect

import (
	"net/url"
	"strings"
)

// Decode returns the destination carried in a url= query parameter, or raw
// unchanged when there is none. Nested wrappers are unwrapped until no url=
// parameter remains, so Decode(Decode(u)) == Decode(u).
func Decode(raw string) string {
	current := raw
	for {
		next, ok := unwrap(current)
		if !ok {
			return current
		}
		current = next
	}
}

// unwrap peels a single wrapper layer. The result is always strictly
// shorter than the input, which bounds Decode's loop.
func unwrap(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.RawQuery == "" {
		return "", false
	}
	target := u.Query().Get("url")
	if target == "" {
		return "", false
	}
	dest, err := url.Parse(target)
	if err != nil || dest.Host == "" {
		return "", false
	}
	if dest.Scheme != "http" && dest.Scheme != "https" {
		return "", false
	}
	return target, true
}
