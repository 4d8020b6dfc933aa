package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/mlbv/internal/credstore"
	"github.com/fortuna/mlbv/internal/scrape"
)

// refresh runs the token exchange chain on a copy of the persisted state and
// saves the copy only once the final access token is in hand.
func (s *Session) refresh(ctx context.Context) error {
	work := s.state.Clone()

	if err := s.updateAPIKeys(ctx, work); err != nil {
		return err
	}

	identityToken, err := s.identityToken(ctx, work)
	if errors.Is(err, ErrLoginRequired) {
		s.logger.Printf("Identity provider requires login")
		if err := s.login(ctx, work); err != nil {
			return err
		}
		identityToken, err = s.identityToken(ctx, work)
	}
	if err != nil {
		return err
	}

	assertion, err := s.deviceAssertion(ctx, work)
	if err != nil {
		return err
	}

	deviceToken, err := s.exchangeToken(ctx, StepDeviceToken, work, assertion, deviceTokenType)
	if err != nil {
		return err
	}

	deviceID, err := s.deviceSession(ctx, deviceToken.AccessToken)
	if err != nil {
		return err
	}

	entitlement, err := s.entitlementToken(ctx, work, identityToken, deviceID)
	if err != nil {
		return err
	}

	token, err := s.exchangeToken(ctx, StepAccessToken, work, entitlement, accountTokenType)
	if err != nil {
		return err
	}
	if token.ExpiresIn <= 0 {
		return &SessionError{Step: StepAccessToken, Err: fmt.Errorf("%w: expires_in", errMissingField)}
	}

	expiry := s.now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second)
	work.AccessToken = token.AccessToken
	work.AccessTokenExpiry = &expiry

	if err := s.store.Save(work); err != nil {
		return err
	}
	s.state = work

	s.logger.Printf("Access token %s valid until %s", redact(work.AccessToken), expiry.Format(time.RFC3339))
	return nil
}

// updateAPIKeys scrapes the API keys from the key page and the okta client id
// from the okta script.
func (s *Session) updateAPIKeys(ctx context.Context, work *credstore.SessionState) error {
	s.logger.Printf("Updating API keys")

	page, err := s.keyPage.Fetch(ctx, s.endpoints.APIKeyPage)
	if err != nil {
		return fetchError(StepAPIKeys, err)
	}
	keys, err := scrape.ScriptKeys(page, scrape.APIKeyMarker, scrape.ClientAPIKeyMarker)
	if err != nil {
		return &SessionError{Step: StepAPIKeys, Err: err}
	}
	if missing := scrape.Missing(keys, scrape.APIKeyMarker, scrape.ClientAPIKeyMarker); len(missing) > 0 {
		return &KeyScrapeError{URL: s.endpoints.APIKeyPage, Missing: missing}
	}
	work.APIKey = keys[scrape.APIKeyMarker.Name]
	work.ClientAPIKey = keys[scrape.ClientAPIKeyMarker.Name]

	s.logger.Printf("Updating Okta client id")
	script, err := s.scripts.Fetch(ctx, s.endpoints.OktaJS)
	if err != nil {
		return fetchError(StepOktaClientID, err)
	}
	clientID, ok := scrape.OktaClientIDMarker.Find(script)
	if !ok {
		return &KeyScrapeError{URL: s.endpoints.OktaJS, Missing: []string{scrape.OktaClientIDMarker.Name}}
	}
	work.OktaClientID = clientID
	s.debugf("okta_client_id: %s", clientID)
	return nil
}

func fetchError(step string, err error) error {
	var statusErr *scrape.StatusError
	if errors.As(err, &statusErr) {
		return &SessionError{Step: step, StatusCode: statusErr.StatusCode, Err: err}
	}
	return &SessionError{Step: step, Err: err}
}

// identityToken asks the okta authorize endpoint for a token using the stored
// session token. An answer of login_required yields ErrLoginRequired.
func (s *Session) identityToken(ctx context.Context, work *credstore.SessionState) (string, error) {
	params := url.Values{}
	params.Set("client_id", work.OktaClientID)
	params.Set("redirect_uri", "https://www.mlb.com/login")
	params.Set("response_type", "id_token token")
	params.Set("response_mode", "okta_post_message")
	params.Set("state", randomString(64))
	params.Set("nonce", randomString(64))
	params.Set("prompt", "none")
	params.Set("sessionToken", work.SessionToken)
	params.Set("scope", "openid email")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.OktaAuthorize+"?"+params.Encode(), nil)
	if err != nil {
		return "", &SessionError{Step: StepIdentityToken, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	body, err := s.Do(StepIdentityToken, req)
	if err != nil {
		return "", err
	}

	token, err := parseAuthorizeResponse(string(body))
	if err != nil {
		s.debugf("authorize response: %s", preview(body))
		return "", &SessionError{Step: StepIdentityToken, Err: err}
	}
	return token, nil
}

// parseAuthorizeResponse reads the okta_post_message page, which assigns the
// outcome to a JS data object one property per line.
func parseAuthorizeResponse(content string) (string, error) {
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "data.access_token") {
			parts := strings.Split(line, "'")
			if len(parts) < 2 || parts[1] == "" {
				return "", fmt.Errorf("%w: access_token", errMissingField)
			}
			return unescapeJS(parts[1]), nil
		}
		if strings.Contains(line, "data.error = 'login_required'") {
			return "", ErrLoginRequired
		}
	}
	return "", errors.New("could not authenticate: no access token in authorize response")
}

// unescapeJS decodes \xNN and \uNNNN escapes of a JS string literal.
func unescapeJS(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `"`, `\"`) + `"`)
	if err != nil {
		return s
	}
	return unquoted
}

func (s *Session) deviceAssertion(ctx context.Context, work *credstore.SessionState) (string, error) {
	payload := devicesRequest{
		ApplicationRuntime: "firefox",
		Attributes:         map[string]string{},
		DeviceFamily:       "browser",
		DeviceProfile:      "macosx",
	}
	req, err := newJSONRequest(ctx, http.MethodPost, s.endpoints.Devices, payload)
	if err != nil {
		return "", &SessionError{Step: StepDeviceAssertion, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+work.ClientAPIKey)
	req.Header.Set("Origin", Origin)

	var resp devicesResponse
	if err := s.doJSON(StepDeviceAssertion, req, &resp); err != nil {
		return "", err
	}
	if resp.Assertion == "" {
		s.logger.Printf("No assertion key in devices response")
		return "", &SessionError{Step: StepDeviceAssertion, Err: ErrMissingAssertion}
	}
	return resp.Assertion, nil
}

// exchangeToken trades subjectToken for a bamgrid access token.
func (s *Session) exchangeToken(ctx context.Context, step string, work *credstore.SessionState, subjectToken, subjectTokenType string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", tokenExchangeGrant)
	form.Set("platform", "browser")
	form.Set("subject_token", subjectToken)
	form.Set("subject_token_type", subjectTokenType)
	if subjectTokenType == deviceTokenType {
		form.Set("latitude", "0")
		form.Set("longitude", "0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.Token, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &SessionError{Step: step, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+work.ClientAPIKey)
	req.Header.Set("Origin", Origin)
	if subjectTokenType == accountTokenType {
		req.Header.Set("User-Agent", UserAgent)
		req.Header.Set("Accept", "application/vnd.media-service+json; version=1")
		req.Header.Set("x-bamsdk-version", BamSDKVersion)
		req.Header.Set("x-bamsdk-platform", Platform)
	}

	var resp tokenResponse
	if err := s.doJSON(step, req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &SessionError{Step: step, Err: fmt.Errorf("%w: access_token", errMissingField)}
	}
	return &resp, nil
}

func (s *Session) deviceSession(ctx context.Context, deviceToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.Session, nil)
	if err != nil {
		return "", &SessionError{Step: StepDeviceSession, Err: err}
	}
	req.Header.Set("Authorization", deviceToken)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Origin", Origin)
	req.Header.Set("Accept", "application/vnd.session-service+json; version=1")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("x-bamsdk-version", BamSDKVersion)
	req.Header.Set("x-bamsdk-platform", Platform)

	var resp sessionResponse
	if err := s.doJSON(StepDeviceSession, req, &resp); err != nil {
		return "", err
	}
	if resp.Device.ID == "" {
		return "", &SessionError{Step: StepDeviceSession, Err: fmt.Errorf("%w: device.id", errMissingField)}
	}
	return resp.Device.ID, nil
}

func (s *Session) entitlementToken(ctx context.Context, work *credstore.SessionState, identityToken, deviceID string) (string, error) {
	params := url.Values{}
	params.Set("os", Platform)
	params.Set("did", deviceID)
	params.Set("appname", "mlbtv_web")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.Entitlement+"?"+params.Encode(), nil)
	if err != nil {
		return "", &SessionError{Step: StepEntitlement, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+identityToken)
	req.Header.Set("Origin", Origin)
	req.Header.Set("x-api-key", work.APIKey)

	body, err := s.Do(StepEntitlement, req)
	if err != nil {
		return "", err
	}
	token := string(bytes.TrimSpace(body))
	if token == "" {
		return "", &SessionError{Step: StepEntitlement, Err: errors.New("empty entitlement token")}
	}
	return token, nil
}

const randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(n int) string {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(randomAlphabet)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b[i] = randomAlphabet[idx.Int64()]
	}
	return string(b)
}
