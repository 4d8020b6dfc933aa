package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fortuna/mlbv/internal/auth"
)

const (
	// StreamURLTemplate is the playback scenario endpoint, keyed by media id.
	StreamURLTemplate = "https://edge.svcs.mlb.com/media/%s/scenarios/browser~csai"

	StepStreamURL = "stream_url"
)

// ErrMalformedStreamResponse is a stream answer with neither errors nor a
// stream.complete URL.
var ErrMalformedStreamResponse = errors.New("malformed stream response: no stream.complete")

// Authenticator supplies access tokens and sends authenticated requests.
type Authenticator interface {
	AccessToken(ctx context.Context) (string, error)
	Do(step string, req *http.Request) ([]byte, error)
}

type streamResponse struct {
	Stream *struct {
		Complete string `json:"complete"`
	} `json:"stream"`
	Errors []json.RawMessage `json:"errors"`
}

// Resolver turns a media id into a playable stream URL.
type Resolver struct {
	auth        Authenticator
	urlTemplate string
	saveDir     string
	logger      *log.Logger
}

// NewResolver creates a Resolver. When saveDir is not empty the raw stream
// response is written to saveDir/stream.json.
func NewResolver(a Authenticator, saveDir string, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(log.Writer(), "[stream] ", log.LstdFlags)
	}
	return &Resolver{
		auth:        a,
		urlTemplate: StreamURLTemplate,
		saveDir:     saveDir,
		logger:      logger,
	}
}

// LookupStreamURL returns the playback URL of mediaID. ok is false when the
// service answered with an errors payload (blackout, not entitled): this is
// logged and is not an error.
func (r *Resolver) LookupStreamURL(ctx context.Context, gamePk, mediaID string) (streamURL string, ok bool, err error) {
	token, err := r.auth.AccessToken(ctx)
	if err != nil {
		return "", false, err
	}

	endpoint := fmt.Sprintf(r.urlTemplate, url.PathEscape(mediaID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, &auth.SessionError{Step: StepStreamURL, Err: err}
	}
	auth.MediaHeaders(req.Header, token)

	body, err := r.auth.Do(StepStreamURL, req)
	if err != nil {
		return "", false, err
	}
	r.saveResponse(body)

	var resp streamResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, &auth.SessionError{Step: StepStreamURL, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, string(e))
		}
		r.logger.Printf("Could not load stream for game %s media %s: %s", gamePk, mediaID, strings.Join(msgs, ", "))
		return "", false, nil
	}
	if resp.Stream == nil || resp.Stream.Complete == "" {
		return "", false, ErrMalformedStreamResponse
	}
	return resp.Stream.Complete, true, nil
}

func (r *Resolver) saveResponse(body []byte) {
	if r.saveDir == "" {
		return
	}
	path := filepath.Join(r.saveDir, "stream.json")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		r.logger.Printf("Failed to save stream response to %s: %v", path, err)
	}
}
