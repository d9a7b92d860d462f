package marriott

import (
	"strings"
	"sync"
)

// CookieJar accumulates provider cookies across one call chain.
// A later value for the same name replaces the earlier one; first-seen order is kept.
type CookieJar struct {
	mu     sync.Mutex
	names  []string
	values map[string]string
}

func NewCookieJar() *CookieJar {
	return &CookieJar{values: map[string]string{}}
}

// Merge folds raw Set-Cookie header values into the jar, keeping only name=value.
func (j *CookieJar) Merge(setCookies []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, sc := range setCookies {
		pair := strings.TrimSpace(strings.SplitN(sc, ";", 2)[0])
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if _, seen := j.values[name]; !seen {
			j.names = append(j.names, name)
		}
		j.values[name] = value
	}
}

func (j *CookieJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.names)
}

func (j *CookieJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.values[name]
	return v, ok
}

// Header renders the jar as a Cookie request header value.
func (j *CookieJar) Header() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	parts := make([]string, 0, len(j.names))
	for _, n := range j.names {
		parts = append(parts, n+"="+j.values[n])
	}
	return strings.Join(parts, "; ")
}
