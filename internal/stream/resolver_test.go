package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/mlbv/internal/auth"
)

type fakeAuth struct {
	token    string
	tokenErr error
	body     string
	doErr    error

	requests []*http.Request
}

func (f *fakeAuth) AccessToken(ctx context.Context) (string, error) {
	return f.token, f.tokenErr
}

func (f *fakeAuth) Do(step string, req *http.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if f.doErr != nil {
		return nil, f.doErr
	}
	return []byte(f.body), nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestLookupStreamURL(t *testing.T) {
	fa := &fakeAuth{
		token: "access-1",
		body:  `{"stream":{"complete":"https://hls.example.com/master.m3u8"}}`,
	}
	r := NewResolver(fa, "", quietLogger())

	streamURL, ok, err := r.LookupStreamURL(context.Background(), "745804", "b7f0fff7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://hls.example.com/master.m3u8", streamURL)

	require.Len(t, fa.requests, 1)
	req := fa.requests[0]
	assert.Equal(t, "https://edge.svcs.mlb.com/media/b7f0fff7/scenarios/browser~csai", req.URL.String())
	assert.Equal(t, "access-1", req.Header.Get("Authorization"))
	assert.Equal(t, auth.BamSDKVersion, req.Header.Get("x-bamsdk-version"))
}

func TestLookupStreamURL_ErrorsPayloadIsAbsence(t *testing.T) {
	fa := &fakeAuth{token: "access-1", body: `{"errors": ["blacked out"]}`}
	r := NewResolver(fa, "", quietLogger())

	streamURL, ok, err := r.LookupStreamURL(context.Background(), "745804", "m1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, streamURL)
}

func TestLookupStreamURL_Malformed(t *testing.T) {
	fa := &fakeAuth{token: "access-1", body: `{"stream":{}}`}
	r := NewResolver(fa, "", quietLogger())

	_, _, err := r.LookupStreamURL(context.Background(), "745804", "m1")
	assert.ErrorIs(t, err, ErrMalformedStreamResponse)

	fa.body = `not json`
	_, _, err = r.LookupStreamURL(context.Background(), "745804", "m1")
	var sessErr *auth.SessionError
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, StepStreamURL, sessErr.Step)
}

func TestLookupStreamURL_PropagatesFailures(t *testing.T) {
	tokenErr := &auth.KeyScrapeError{URL: "https://www.mlb.com/tv", Missing: []string{"api_key"}}
	fa := &fakeAuth{tokenErr: tokenErr}
	r := NewResolver(fa, "", quietLogger())

	_, _, err := r.LookupStreamURL(context.Background(), "1", "m1")
	assert.True(t, errors.Is(err, tokenErr))
	assert.Empty(t, fa.requests, "no stream request without a token")

	httpErr := &auth.SessionError{Step: StepStreamURL, StatusCode: http.StatusForbidden}
	fa = &fakeAuth{token: "t", doErr: httpErr}
	r = NewResolver(fa, "", quietLogger())
	_, _, err = r.LookupStreamURL(context.Background(), "1", "m1")
	assert.ErrorIs(t, err, httpErr)
}

func TestLookupStreamURL_SavesResponse(t *testing.T) {
	dir := t.TempDir()
	body := `{"stream":{"complete":"https://hls.example.com/a.m3u8"}}`
	r := NewResolver(&fakeAuth{token: "t", body: body}, dir, quietLogger())

	_, ok, err := r.LookupStreamURL(context.Background(), "1", "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	saved, err := os.ReadFile(filepath.Join(dir, "stream.json"))
	require.NoError(t, err)
	assert.Equal(t, body, string(saved))
}
