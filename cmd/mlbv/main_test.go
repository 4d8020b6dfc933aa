package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/mlbv/internal/auth"
	"github.com/fortuna/mlbv/internal/credstore"
)

// parse runs the parser without executing the selected command.
func parse(t *testing.T, args []string) (*Options, flags.Commander, error) {
	t.Helper()
	opts := &Options{}
	opts.Init(commandName(args))

	var selected flags.Commander
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(command flags.Commander, _ []string) error {
		selected = command
		return nil
	}
	_, err := parser.ParseArgs(args)
	return opts, selected, err
}

func TestCommandName(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"play", "-t", "tor"}, want: "play"},
		{args: []string{"--debug", "url", "-t", "tor"}, want: "url"},
		{args: []string{"-c", "/etc/mlbv", "token"}, want: "token"},
		{args: []string{"--config-dir", "play", "logout"}, want: "logout"},
		{args: []string{"--verbose"}, want: ""},
		{args: nil, want: ""},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.args), func(t *testing.T) {
			assert.Equal(t, tc.want, commandName(tc.args))
		})
	}
}

func TestParsePlay(t *testing.T) {
	opts, selected, err := parse(t, []string{
		"--debug", "-c", "/tmp/cfg",
		"play", "--team", "tor", "--date", "2026-04-01", "--feed", "h",
		"--inning", "b5", "--fetch", "--wait", "--game", "2",
	})
	require.NoError(t, err)

	assert.True(t, opts.Debug)
	assert.Equal(t, "/tmp/cfg", opts.ConfigDir)
	require.NotNil(t, opts.Play)
	assert.Same(t, opts.Play, selected)
	assert.Same(t, opts, opts.Play.opts)

	p := opts.Play
	assert.Equal(t, "tor", p.Team)
	assert.Equal(t, "2026-04-01", p.Date)
	assert.Equal(t, "h", p.Feed)
	assert.Equal(t, "b5", p.Inning)
	assert.Equal(t, 2, p.Game)
	assert.True(t, p.Fetch)
	assert.True(t, p.Wait)
	assert.False(t, p.FromStart)
}

func TestParseDefaults(t *testing.T) {
	opts, _, err := parse(t, []string{"url", "-t", "nyy"})
	require.NoError(t, err)
	require.NotNil(t, opts.URL)
	assert.Equal(t, 1, opts.URL.Game)
	assert.False(t, opts.URL.Page)
	assert.Empty(t, opts.URL.Feed)
}

func TestParseErrors(t *testing.T) {
	_, _, err := parse(t, []string{"play"})
	assert.Error(t, err, "team is required")

	_, _, err = parse(t, []string{"rewind"})
	assert.Error(t, err)

	_, _, err = parse(t, []string{"token", "--nope"})
	assert.Error(t, err)
}

func TestRunHelpExitsZero(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"--help"}, &stderr))
	assert.Equal(t, 1, run(context.Background(), []string{"play"}, &stderr))
	assert.NotEmpty(t, stderr.String())
}

func TestRunLogoutRemovesCorruptState(t *testing.T) {
	for _, corrupt := range []string{credstore.SessionFile, credstore.CookieFile} {
		t.Run(corrupt, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, corrupt), []byte("{not json"), 0o600))
			other := credstore.CookieFile
			if corrupt == credstore.CookieFile {
				other = credstore.SessionFile
			}
			require.NoError(t, os.WriteFile(filepath.Join(dir, other), []byte("{}"), 0o600))

			var stderr bytes.Buffer
			assert.Equal(t, 0, run(context.Background(), []string{"-c", dir, "logout"}, &stderr), stderr.String())
			assert.NoFileExists(t, filepath.Join(dir, credstore.SessionFile))
			assert.NoFileExists(t, filepath.Join(dir, credstore.CookieFile))
		})
	}
}

func TestGameOptionsDate(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		opts    GameOptions
		want    string
		wantErr bool
	}{
		{name: "today", want: "2026-04-01"},
		{name: "explicit", opts: GameOptions{Date: "2025-09-28"}, want: "2025-09-28"},
		{name: "yesterday", opts: GameOptions{Yesterday: true}, want: "2026-03-31"},
		{name: "tomorrow wins over date", opts: GameOptions{Tomorrow: true, Date: "2025-09-28"}, want: "2026-04-02"},
		{name: "both", opts: GameOptions{Yesterday: true, Tomorrow: true}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.opts.date(now)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "credentials",
			err:  fmt.Errorf("refresh: %w", &auth.CredentialsInvalidError{Username: "fan", StatusCode: 401, Reason: "rejected"}),
			want: "MLBV_USERNAME",
		},
		{
			name: "key scrape",
			err:  &auth.KeyScrapeError{URL: "https://www.mlb.com/tv", Missing: []string{"api_key"}},
			want: "scrape_with_browser=true",
		},
		{
			name: "login required",
			err:  fmt.Errorf("identity token: %w", auth.ErrLoginRequired),
			want: "mlbv logout",
		},
		{
			name: "session",
			err:  &auth.SessionError{Step: auth.StepDeviceToken, StatusCode: 500},
			want: "--debug",
		},
		{
			name: "cancelled",
			err:  context.Canceled,
			want: "Interrupted",
		},
		{
			name: "other",
			err:  fmt.Errorf("boom"),
			want: "mlbv: boom",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, describe(tc.err), tc.want)
		})
	}
}
