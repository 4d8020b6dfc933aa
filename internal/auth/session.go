package auth

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/fortuna/mlbv/internal/credstore"
	"github.com/fortuna/mlbv/internal/scrape"
)

// Options configures a Session.
type Options struct {
	Username string
	Password string

	Endpoints Endpoints

	// HTTPClient is used for every request. Its Jar should be the store's
	// jar so cookies survive between runs.
	HTTPClient *http.Client

	// KeyPageFetcher fetches the API key page. Defaults to a plain HTTP
	// fetch through HTTPClient.
	KeyPageFetcher scrape.Fetcher

	Logger *log.Logger
	Debug  bool

	// Now is the clock used for expiry checks.
	Now func() time.Time
}

// Session owns the persisted authentication state and refreshes the access
// token through the provider's token exchange chain when it expires.
type Session struct {
	store     *credstore.Store
	state     *credstore.SessionState // as last persisted
	endpoints Endpoints
	username  string
	password  string

	client  *http.Client
	keyPage scrape.Fetcher
	scripts scrape.Fetcher

	logger *log.Logger
	debug  bool
	now    func() time.Time
}

// NewHTTPClient builds the client shared by the session and the stream
// resolver.
func NewHTTPClient(jar http.CookieJar, verifySSL bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !verifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Jar:       jar,
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// New loads the persisted state from store. No network call is made.
func New(store *credstore.Store, opts Options) (*Session, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}

	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(store.Jar(), true)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[auth] ", log.LstdFlags)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	scripts := scrape.NewHTTPFetcher(opts.HTTPClient)
	keyPage := opts.KeyPageFetcher
	if keyPage == nil {
		keyPage = scripts
	}

	return &Session{
		store:     store,
		state:     state,
		endpoints: opts.Endpoints,
		username:  opts.Username,
		password:  opts.Password,
		client:    opts.HTTPClient,
		keyPage:   keyPage,
		scripts:   scripts,
		logger:    opts.Logger,
		debug:     opts.Debug,
		now:       opts.Now,
	}, nil
}

// State returns a copy of the persisted state.
func (s *Session) State() *credstore.SessionState {
	return s.state.Clone()
}

// HTTPClient returns the cookie-carrying client of the session.
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// AccessToken returns a valid access token. A cached token that has not
// expired is returned without any network call; otherwise the full refresh
// chain runs and its result is persisted before returning.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if s.state.HasValidToken(s.now().UTC()) {
		return s.state.AccessToken, nil
	}

	if s.state.AccessToken == "" {
		s.logger.Printf("No access token, refreshing")
	} else {
		s.logger.Printf("Access token expired at %s, refreshing", s.state.AccessTokenExpiry.Format(time.RFC3339))
	}

	if err := s.refresh(ctx); err != nil {
		return "", err
	}
	return s.state.AccessToken, nil
}

// Logout deletes the persisted state and cookies.
func (s *Session) Logout() error {
	if err := s.store.Destroy(); err != nil {
		return err
	}
	s.state = &credstore.SessionState{}
	s.logger.Printf("Session destroyed")
	return nil
}

// Do sends req and returns the body of a 2xx response. Any other outcome is
// a *SessionError labelled with step. Cookies set by the response are
// persisted.
func (s *Session) Do(step string, req *http.Request) ([]byte, error) {
	s.debugf("%s: %s %s", step, req.Method, req.URL.Redacted())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SessionError{Step: step, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SessionError{Step: step, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if len(resp.Header.Values("Set-Cookie")) > 0 {
		if err := s.store.SaveCookies(); err != nil {
			s.logger.Printf("Failed to save cookies: %v", err)
		}
	}

	if resp.StatusCode >= 400 {
		return body, &SessionError{Step: step, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s %s", req.Method, req.URL.Redacted())}
	}
	return body, nil
}

func (s *Session) doJSON(step string, req *http.Request, out any) error {
	body, err := s.Do(step, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &SessionError{Step: step, Err: fmt.Errorf("decoding response: %w (body: %s)", err, preview(body))}
	}
	return nil
}

func newJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *Session) debugf(format string, args ...any) {
	if s.debug {
		s.logger.Printf(format, args...)
	}
}

func preview(body []byte) string {
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}

// redact keeps enough of a token to tell tokens apart in logs.
func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
