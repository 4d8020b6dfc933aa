package credstore

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// CookieState is the serializable form of one cookie.
type CookieState struct {
	Domain   string     `json:"domain"`
	Path     string     `json:"path"`
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HttpOnly bool       `json:"http_only,omitempty"`
	HostOnly bool       `json:"host_only,omitempty"`
}

// Jar is an http.CookieJar that remembers every cookie it accepts so the
// set can be written to disk. Session cookies (no expiry) are kept.
type Jar struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]CookieState
	now     func() time.Time
}

// NewJar creates an empty persistent jar.
func NewJar() *Jar {
	// cookiejar.New only fails on a bad PublicSuffixList
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Jar{
		jar:     jar,
		entries: make(map[string]CookieState),
		now:     time.Now,
	}
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	now := j.now()
	for _, c := range cookies {
		state := j.stateFor(u, c, now)
		key := state.Domain + ";" + state.Path + ";" + state.Name
		if c.MaxAge < 0 || (state.Expires != nil && !state.Expires.After(now)) {
			delete(j.entries, key)
			continue
		}
		j.entries[key] = state
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	jar := j.jar
	j.mu.Unlock()
	return jar.Cookies(u)
}

func (j *Jar) stateFor(u *url.URL, c *http.Cookie, now time.Time) CookieState {
	state := CookieState{
		Domain:   strings.TrimPrefix(strings.ToLower(c.Domain), "."),
		Path:     c.Path,
		Name:     c.Name,
		Value:    c.Value,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if state.Domain == "" {
		state.Domain = strings.ToLower(u.Hostname())
		state.HostOnly = true
	}
	if state.Path == "" || state.Path[0] != '/' {
		state.Path = defaultPath(u.Path)
	}
	switch {
	case c.MaxAge > 0:
		exp := now.Add(time.Duration(c.MaxAge) * time.Second).UTC()
		state.Expires = &exp
	case !c.Expires.IsZero():
		exp := c.Expires.UTC()
		state.Expires = &exp
	}
	return state
}

// defaultPath follows RFC 6265 section 5.1.4.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}

// Export returns every unexpired cookie held by the jar.
func (j *Jar) Export() []CookieState {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	out := make([]CookieState, 0, len(j.entries))
	for key, c := range j.entries {
		if c.Expires != nil && !c.Expires.After(now) {
			delete(j.entries, key)
			continue
		}
		out = append(out, c)
	}
	return out
}

// Import replays persisted cookies into the jar. Expired cookies are dropped.
func (j *Jar) Import(cookies []CookieState) {
	now := j.now()
	for _, c := range cookies {
		if c.Expires != nil && !c.Expires.After(now) {
			continue
		}
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		u := &url.URL{Scheme: scheme, Host: c.Domain, Path: c.Path}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if !c.HostOnly {
			hc.Domain = c.Domain
		}
		if c.Expires != nil {
			hc.Expires = *c.Expires
		}
		j.SetCookies(u, []*http.Cookie{hc})
	}
}

// Clear drops every cookie.
func (j *Jar) Clear() {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = jar
	j.entries = make(map[string]CookieState)
}

// Header renders the cookies for u as a Cookie header value.
func (j *Jar) Header(u *url.URL) string {
	var parts []string
	for _, c := range j.Cookies(u) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
