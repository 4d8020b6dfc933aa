package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/fortuna/mlbv/internal/credstore"
)

// login posts the credentials to the identity provider and keeps the
// returned session token. The token is persisted on top of the last saved
// state so the rest of the pending refresh stays unsaved.
func (s *Session) login(ctx context.Context, work *credstore.SessionState) error {
	if s.username == "" || s.password == "" {
		return &CredentialsInvalidError{Username: s.username, Reason: "no username or password configured"}
	}

	s.logger.Printf("Logging in as %s", s.username)

	payload := authnRequest{
		Username: s.username,
		Password: s.password,
		Options: authnOptions{
			MultiOptionalFactorEnroll: false,
			WarnBeforePasswordExpired: true,
		},
	}
	req, err := newJSONRequest(ctx, http.MethodPost, s.endpoints.Authn, payload)
	if err != nil {
		return &SessionError{Step: StepLogin, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	var resp authnResponse
	if err := s.doJSON(StepLogin, req, &resp); err != nil {
		var sessErr *SessionError
		if errors.As(err, &sessErr) && (sessErr.StatusCode == http.StatusUnauthorized || sessErr.StatusCode == http.StatusForbidden) {
			return &CredentialsInvalidError{Username: s.username, StatusCode: sessErr.StatusCode, Reason: "authentication rejected"}
		}
		return err
	}
	if resp.SessionToken == "" {
		return &CredentialsInvalidError{Username: s.username, Reason: "no session token returned (status " + resp.Status + ")"}
	}

	now := s.now().UTC()
	work.SessionToken = resp.SessionToken
	work.SessionTokenTime = &now

	persisted := s.state.Clone()
	persisted.SessionToken = resp.SessionToken
	persisted.SessionTokenTime = &now
	if err := s.store.Save(persisted); err != nil {
		return err
	}
	s.state = persisted
	return nil
}
