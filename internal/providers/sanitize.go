package providers

import (
	"regexp"
	"strings"
)

var (
	listPrefixRe = regexp.MustCompile(`^\d+\.\s*`)
	newlinesRe   = regexp.MustCompile(`\n+`)
)

// Sanitize strips the formatting artifacts models leak into casual replies:
// wrapping quotes, markdown emphasis, horizontal rules, bullet glyphs,
// numbered-list prefixes, and multi-line breaks.
func Sanitize(reply string) string {
	reply = strings.TrimSpace(reply)
	if len(reply) >= 2 && strings.HasPrefix(reply, `"`) && strings.HasSuffix(reply, `"`) {
		reply = reply[1 : len(reply)-1]
	}

	for _, artifact := range []string{"---", "--", "**", "*", "•", "●"} {
		reply = strings.ReplaceAll(reply, artifact, "")
	}
	reply = listPrefixRe.ReplaceAllString(reply, "")
	reply = newlinesRe.ReplaceAllString(reply, " ")
	return strings.TrimSpace(reply)
}
