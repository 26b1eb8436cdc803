package mlservice

import (
	"net/url"
	"strings"
)

// ResolveReference turns a file reference into a fetchable URL. The first
// matching rule wins:
//
//	"/download?file=a.csv"  -> base + reference
//	"https://host/a.csv"    -> reference unchanged
//	"a.csv"                 -> base + "/download?file=" + escaped reference
func ResolveReference(baseURL, reference string) string {
	switch {
	case strings.HasPrefix(reference, "/"):
		return baseURL + reference
	case strings.HasPrefix(reference, "http://"), strings.HasPrefix(reference, "https://"):
		return reference
	default:
		return baseURL + "/download?file=" + encodeComponent(reference)
	}
}

func (c *Client) Resolve(reference string) string {
	return ResolveReference(c.baseURL, reference)
}

func (c *Client) resolveOptional(reference *string) *string {
	if reference == nil || *reference == "" {
		return nil
	}
	resolved := c.Resolve(*reference)
	return &resolved
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
