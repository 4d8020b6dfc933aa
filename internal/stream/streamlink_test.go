package stream

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/mlbv/internal/config"
)

func TestResolution(t *testing.T) {
	assert.Equal(t, "720p_alt", Resolution("best"))
	assert.Equal(t, "720p_alt", Resolution(""))
	assert.Equal(t, "540p", Resolution("540p"))
	assert.Equal(t, "720p_alt,540p", Resolution("best,540p"))
}

func TestStreamlinkArgs(t *testing.T) {
	base := []string{
		"--http-no-ssl-verify",
		"--http-cookie", "Authorization=tok",
		"--http-header", "User-Agent=" + config.UserAgentPC,
		"--hls-timeout", "600",
		"--hls-segment-timeout", "60",
	}

	tests := []struct {
		name string
		cfg  func(*config.Config)
		req  PlayRequest
		want []string
	}{
		{
			name: "play with offset",
			cfg:  func(c *config.Config) { c.VideoPlayer = "mpv" },
			req:  PlayRequest{StreamURL: "https://x/m.m3u8", AccessToken: "tok", Offset: "00:15:30"},
			want: append(append([]string{}, base...),
				"--hls-start-offset", "00:15:30",
				"--player-no-close",
				"--player", "mpv",
				"https://x/m.m3u8", "720p_alt"),
		},
		{
			name: "from start wins over offset",
			cfg:  func(c *config.Config) { c.VideoPlayer = "" },
			req:  PlayRequest{StreamURL: "u", AccessToken: "tok", Offset: "00:01:00", FromStart: true},
			want: append(append([]string{}, base...),
				"--hls-live-restart",
				"--player-no-close",
				"u", "720p_alt"),
		},
		{
			name: "fetch with extra args and passthrough ignored",
			cfg: func(c *config.Config) {
				c.VideoPlayer = "vlc"
				c.StreamlinkPassthrough = true
				c.StreamlinkExtraArgs = "--retry-streams 5, --ringbuffer-size=64M"
				c.Resolution = "540p"
			},
			req: PlayRequest{StreamURL: "u", AccessToken: "tok", FetchFilename: "game.ts"},
			want: append(append([]string{}, base...),
				"--retry-streams 5", "--ringbuffer-size=64M",
				"--output", "game.ts",
				"u", "540p"),
		},
		{
			name: "passthrough audio select and verbose",
			cfg: func(c *config.Config) {
				c.VideoPlayer = "mpv"
				c.StreamlinkPassthrough = true
				c.StreamlinkHLSAudioSelect = "*"
				c.Verbose = true
			},
			req: PlayRequest{StreamURL: "u", AccessToken: "tok"},
			want: append(append([]string{}, base...),
				"--player-no-close",
				"--player", "mpv", "--player-passthrough=hls",
				"--hls-audio-select", "*",
				"--loglevel", "debug",
				"u", "720p_alt"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.StreamlinkHLSAudioSelect = ""
			tc.cfg(cfg)
			s := NewStreamlink(cfg, quietLogger())
			assert.Equal(t, tc.want, s.Args(tc.req))
		})
	}
}

func TestStreamlinkHighlightCommand(t *testing.T) {
	const cut = "https://cuts/cnd.m3u8"

	tests := []struct {
		name  string
		cfg   func(*config.Config)
		fetch string
		want  []string
	}{
		{
			name: "defaults stream with passthrough and no cookie",
			cfg:  func(c *config.Config) {},
			want: []string{"streamlink", "--player-no-close", "--player", "mpv", "--player-passthrough=hls", cut, "720p_alt"},
		},
		{
			name:  "record",
			cfg:   func(c *config.Config) { c.Resolution = "540p" },
			fetch: "2026-04-01-tor-nyy-condensed.mp4",
			want:  []string{"streamlink", "--player-no-close", "--output", "2026-04-01-tor-nyy-condensed.mp4", cut, "540p"},
		},
		{
			name: "extra args without passthrough",
			cfg: func(c *config.Config) {
				c.StreamlinkExtraArgs = "--player-external-http"
				c.StreamlinkPassthroughHighlights = false
				c.Verbose = true
			},
			want: []string{"streamlink", "--player-external-http", "--player", "mpv", "--loglevel", "debug", cut, "720p_alt"},
		},
		{
			name: "player directly",
			cfg: func(c *config.Config) {
				c.StreamlinkHighlights = false
				c.VideoPlayer = "mpv --keep-open=no"
			},
			want: []string{"mpv", "--keep-open=no", cut},
		},
		{
			name:  "recording always uses streamlink",
			cfg:   func(c *config.Config) { c.StreamlinkHighlights = false },
			fetch: "cut.mp4",
			want:  []string{"streamlink", "--player-no-close", "--output", "cut.mp4", cut, "720p_alt"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.cfg(cfg)
			s := NewStreamlink(cfg, quietLogger())
			got := s.HighlightCommand(cut, tc.fetch)
			assert.Equal(t, tc.want, got)
			assert.NotContains(t, got, "--http-cookie")
		})
	}
}

func TestHighlightFilename(t *testing.T) {
	assert.Equal(t, "2026-04-01-tor-nyy-recap.mp4", HighlightFilename("2026-04-01", "tor", "nyy", "recap"))
	assert.Equal(t, "2026-04-01-tor-nyy-home.ts", FetchFilename("2026-04-01", "tor", "nyy", "home"))
}

func TestUniquify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2026-04-01-tor-nyy-home.ts")
	now := time.Date(2026, 4, 1, 19, 7, 0, 0, time.UTC)

	assert.Equal(t, path, Uniquify(path, now))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	assert.Equal(t, filepath.Join(dir, "2026-04-01-tor-nyy-home-1907.ts"), Uniquify(path, now))
}
