package stream

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/fortuna/mlbv/internal/config"
)

// PlayRequest carries what the streaming helper needs to play or record a
// resolved stream.
type PlayRequest struct {
	StreamURL   string
	AccessToken string
	// Offset is an HH:MM:SS start offset; ignored when FromStart is set.
	Offset    string
	FromStart bool
	// FetchFilename records the stream to a file instead of playing it.
	FetchFilename string
}

// Streamlink builds and runs streamlink command lines.
type Streamlink struct {
	cfg    *config.Config
	binary string
	logger *log.Logger
}

// NewStreamlink creates a runner for cfg.
func NewStreamlink(cfg *config.Config, logger *log.Logger) *Streamlink {
	if logger == nil {
		logger = log.New(log.Writer(), "[stream] ", log.LstdFlags)
	}
	return &Streamlink{cfg: cfg, binary: "streamlink", logger: logger}
}

// Resolution maps "best" to "720p_alt", which streamlink otherwise fails to
// pick for these playlists.
func Resolution(resolution string) string {
	if resolution == "" {
		return "720p_alt"
	}
	if strings.Contains(resolution, "best") {
		return strings.ReplaceAll(resolution, "best", "720p_alt")
	}
	return resolution
}

// Args returns the streamlink arguments for req, without the binary.
func (s *Streamlink) Args(req PlayRequest) []string {
	args := []string{
		"--http-no-ssl-verify",
		"--http-cookie", "Authorization=" + req.AccessToken,
		"--http-header", "User-Agent=" + config.UserAgentPC,
		"--hls-timeout", "600",
		"--hls-segment-timeout", "60",
	}

	if req.FromStart {
		args = append(args, "--hls-live-restart")
	} else if req.Offset != "" {
		args = append(args, "--hls-start-offset", req.Offset)
	}

	args = append(args, s.extraArgs()...)

	if req.FetchFilename != "" {
		args = append(args, "--output", req.FetchFilename)
	} else if s.cfg.VideoPlayer != "" {
		args = append(args, "--player", s.cfg.VideoPlayer)
		if s.cfg.StreamlinkPassthrough {
			args = append(args, "--player-passthrough=hls")
		}
	}

	if sel := s.cfg.StreamlinkHLSAudioSelect; sel != "" {
		args = append(args, "--hls-audio-select", sel)
	}
	if s.cfg.Verbose {
		args = append(args, "--loglevel", "debug")
	}

	return append(args, req.StreamURL, Resolution(s.cfg.Resolution))
}

func (s *Streamlink) extraArgs() []string {
	extra := strings.TrimSpace(s.cfg.StreamlinkExtraArgs)
	if extra == "" {
		// keeps the player open after the stream is fully fetched
		return []string{"--player-no-close"}
	}
	var args []string
	for _, a := range strings.Split(extra, ",") {
		if a = strings.TrimSpace(a); a != "" {
			args = append(args, a)
		}
	}
	return args
}

// HighlightCommand returns the command line, binary first, that plays or
// records a condensed game or recap. Highlight URLs are public: no cookie
// is sent. With streamlink_highlights off and nothing to record the URL is
// handed to the video player directly.
func (s *Streamlink) HighlightCommand(playbackURL, fetchFilename string) []string {
	if fetchFilename == "" && !s.cfg.StreamlinkHighlights && s.cfg.VideoPlayer != "" {
		return append(strings.Fields(s.cfg.VideoPlayer), playbackURL)
	}

	cmd := append([]string{s.binary}, s.extraArgs()...)
	if fetchFilename != "" {
		cmd = append(cmd, "--output", fetchFilename)
	} else if s.cfg.VideoPlayer != "" {
		cmd = append(cmd, "--player", s.cfg.VideoPlayer)
		if s.cfg.StreamlinkPassthroughHighlights {
			cmd = append(cmd, "--player-passthrough=hls")
		}
	}
	if s.cfg.Verbose {
		cmd = append(cmd, "--loglevel", "debug")
	}
	return append(cmd, playbackURL, Resolution(s.cfg.Resolution))
}

// PlayHighlight runs HighlightCommand and blocks until it exits.
func (s *Streamlink) PlayHighlight(ctx context.Context, playbackURL, fetchFilename string) error {
	argv := s.HighlightCommand(playbackURL, fetchFilename)
	s.logger.Printf("Playing highlight: %s", strings.Join(argv, " "))
	if fetchFilename != "" {
		s.logger.Printf("Recording to %s", fetchFilename)
	}
	return s.exec(ctx, argv[0], argv[1:])
}

// Run starts streamlink and blocks until it exits.
func (s *Streamlink) Run(ctx context.Context, req PlayRequest) error {
	if req.FromStart {
		s.logger.Printf("Starting from beginning [--hls-live-restart]")
	} else if req.Offset != "" {
		s.logger.Printf("Using --hls-start-offset %s", req.Offset)
	}
	if req.FetchFilename != "" {
		s.logger.Printf("Recording to %s", req.FetchFilename)
	}

	return s.exec(ctx, s.binary, s.Args(req))
}

func (s *Streamlink) exec(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", filepath.Base(name), err)
	}
	return nil
}

// FetchFilename names a recording after the game, e.g.
// 2026-04-01-tor-nyy-home.ts. An existing file is never overwritten.
func FetchFilename(date, away, home, feed string) string {
	return Uniquify(recordingName(date, away, home, feed)+".ts", time.Now())
}

// HighlightFilename names a recorded highlight, e.g.
// 2026-04-01-tor-nyy-condensed.mp4.
func HighlightFilename(date, away, home, feed string) string {
	return Uniquify(recordingName(date, away, home, feed)+".mp4", time.Now())
}

func recordingName(date, away, home, feed string) string {
	name := fmt.Sprintf("%s-%s-%s", date, away, home)
	if feed != "" {
		name += "-" + feed
	}
	return name
}

// Uniquify returns path, or path with an HHMM suffix when path exists.
func Uniquify(path string, now time.Time) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	unique := fmt.Sprintf("%s-%s%s", strings.TrimSuffix(path, ext), now.Format("1504"), ext)
	log.Printf("File %s exists, using %s instead", path, unique)
	return unique
}
