package platform

import (
	"regexp"
	"strings"
)

var subredditPattern = regexp.MustCompile(`(?i)reddit\.com/r/([a-z0-9\-_+]+)`)

// SubredditFromURL extracts the subreddit name from a post or comment URL.
func SubredditFromURL(url string) (string, bool) {
	m := subredditPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CleanID strips the type prefix from a fullname: "t3_abc" becomes "abc".
// IDs without a prefix are returned unchanged.
func CleanID(id string) string {
	if i := strings.IndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// CleanList drops entries that are blank once whitespace is trimmed.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	return out
}
