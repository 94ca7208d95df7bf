package hits

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// botMatcher matches the crawler tokens anywhere in a lowercased user agent.
var botMatcher = ahocorasick.NewStringMatcher([]string{"bot", "crawl", "spider"})

// ClassifyUA buckets a raw user-agent string into a coarse device/client
// label. Order matters: Edge ships "Chrome" in its UA, Chrome ships "Safari".
func ClassifyUA(ua string) string {
	lower := strings.ToLower(ua)
	if len(botMatcher.Match([]byte(lower))) > 0 {
		return "Bot"
	}
	switch {
	case strings.Contains(lower, "edg"):
		return "Edge"
	case strings.Contains(lower, "chrome"), strings.Contains(lower, "crios"), strings.Contains(lower, "chromium"):
		return "Chrome"
	case strings.Contains(lower, "safari"):
		return "Safari"
	case strings.Contains(lower, "firefox"):
		return "Firefox"
	case strings.Contains(lower, "msie"), strings.Contains(lower, "trident"):
		return "IE"
	}
	return "Other"
}
