package auth

import (
	"errors"
	"fmt"
	"strings"
)

// Steps of the refresh chain, used to label errors and log lines.
const (
	StepAPIKeys         = "api_keys"
	StepOktaClientID    = "okta_client_id"
	StepIdentityToken   = "identity_token"
	StepLogin           = "login"
	StepDeviceAssertion = "device_assertion"
	StepDeviceToken     = "device_token"
	StepDeviceSession   = "device_session"
	StepEntitlement     = "entitlement"
	StepAccessToken     = "access_token"
)

var (
	// ErrLoginRequired is the identity provider asking for a fresh login.
	ErrLoginRequired = errors.New("login required")

	// ErrMissingAssertion is a device registration answer without an
	// assertion field.
	ErrMissingAssertion = errors.New("device registration response has no assertion")

	errMissingField = errors.New("missing field in response")
)

// SessionError wraps any HTTP-layer failure of one step: a network error,
// a status >= 400 or an undecodable body.
type SessionError struct {
	Step       string
	StatusCode int
	Err        error
}

func (e *SessionError) Error() string {
	var b strings.Builder
	b.WriteString("session error at ")
	b.WriteString(e.Step)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// KeyScrapeError reports markers that could not be found in a scraped page.
type KeyScrapeError struct {
	URL     string
	Missing []string
}

func (e *KeyScrapeError) Error() string {
	return fmt.Sprintf("could not update API keys: %s not found in %s", strings.Join(e.Missing, ", "), e.URL)
}

// CredentialsInvalidError is a login the identity provider refused, or one
// that could not be attempted for lack of credentials.
type CredentialsInvalidError struct {
	Username   string
	StatusCode int
	Reason     string
}

func (e *CredentialsInvalidError) Error() string {
	msg := fmt.Sprintf("login failed for %q: %s", e.Username, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	return msg
}
