package deploy

import (
	"regexp"
	"sync"
)

var (
	urlPatternsMu sync.Mutex
	urlPatterns   = map[string]*regexp.Regexp{}
)

func urlPattern(domain string) *regexp.Regexp {
	urlPatternsMu.Lock()
	defer urlPatternsMu.Unlock()
	re, ok := urlPatterns[domain]
	if !ok {
		// The domain must end the host: the next character may not continue
		// it, and a dot is only accepted as sentence punctuation.
		re = regexp.MustCompile(`(https://[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.` + regexp.QuoteMeta(domain) +
			`)(?:[^A-Za-z0-9.-]|\.(?:\s|$)|$)`)
		urlPatterns[domain] = re
	}
	return re
}

// ExtractURL returns the first https://<host>.<domain> URL in output.
// The deploy tool's output is free-form, so a miss is an expected outcome
// and reported through the boolean rather than an error.
func ExtractURL(output, domain string) (string, bool) {
	if domain == "" {
		return "", false
	}
	m := urlPattern(domain).FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	return m[1], true
}
