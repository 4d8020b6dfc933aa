package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
)

const (
	// AppName names the config directory and the temp directory.
	AppName = "mlbv"

	// FileName is the INI file looked up inside the config directory.
	FileName = "config"

	// UserAgentPC is sent to the streaming helper as the HTTP user agent.
	UserAgentPC = "Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/48.0.2564.97 Safari/537.36"
)

// Config holds every setting read from the INI config file. The ini-name tags
// are interpreted by github.com/jessevdk/go-flags.
type Config struct {
	Username string `long:"username" ini-name:"username"`
	Password string `long:"password" ini-name:"password"`

	VideoPlayer string `long:"video-player" ini-name:"video_player"`
	Resolution  string `long:"resolution" ini-name:"resolution"`
	APIURL      string `long:"api-url" ini-name:"api_url"`

	StreamlinkPassthrough    bool   `long:"streamlink-passthrough" ini-name:"streamlink_passthrough"`
	StreamlinkHLSAudioSelect string `long:"streamlink-hls-audio-select" ini-name:"streamlink_hls_audio_select"`
	StreamlinkExtraArgs      string `long:"streamlink-extra-args" ini-name:"streamlink_extra_args"`
	StreamStartOffsetSecs    int    `long:"stream-start-offset-secs" ini-name:"stream_start_offset_secs"`

	// PlaybackScenario picks the condensed game and recap rendition, e.g.
	// mp4Avc, hlsCloud, HTTP_CLOUD_WIRED or HTTP_CLOUD_WIRED_60.
	PlaybackScenario string `long:"playback-scenario" ini-name:"playback_scenario"`
	// StreamlinkHighlights off hands highlight URLs straight to the player.
	StreamlinkHighlights            bool `long:"streamlink-highlights" ini-name:"streamlink_highlights"`
	StreamlinkPassthroughHighlights bool `long:"streamlink-passthrough-highlights" ini-name:"streamlink_passthrough_highlights"`

	Debug        bool `long:"debug" ini-name:"debug"`
	Verbose      bool `long:"verbose" ini-name:"verbose"`
	VerifySSL    bool `long:"verify-ssl" ini-name:"verify_ssl"`
	SaveJSONFile bool `long:"save-json-file" ini-name:"save_json_file"`

	// ScrapeWithBrowser renders the API key page in headless Chrome.
	ScrapeWithBrowser bool `long:"scrape-with-browser" ini-name:"scrape_with_browser"`

	// RedisURL enables the schedule response cache when set.
	RedisURL string `long:"redis-url" ini-name:"redis_url"`

	// Dir is the directory the config was loaded from. Session and cookie
	// files live next to the config file.
	Dir string `no-flag:"true"`
}

// Default returns the settings applied before the config file is read.
func Default() *Config {
	return &Config{
		VideoPlayer:              "mpv",
		Resolution:               "720p_alt",
		APIURL:                   "https://statsapi.mlb.com",
		StreamlinkHLSAudioSelect: "*",
		PlaybackScenario:         "HTTP_CLOUD_WIRED_60",
		StreamlinkHighlights:     true,
		VerifySSL:                true,
		SaveJSONFile:             false,
		Dir:                      ".",

		StreamlinkPassthroughHighlights: true,
	}
}

// StartOffset returns the configured encoder delay bias.
func (c *Config) StartOffset() time.Duration {
	return time.Duration(c.StreamStartOffsetSecs) * time.Second
}

// Load finds the config directory below roots and reads its config file.
// A missing directory is not an error: defaults are returned with Dir set
// to the current directory.
func Load(roots ...string) (*Config, error) {
	if len(roots) == 0 {
		roots = DefaultRoots()
	}

	dir, found := FindDir(roots)
	if !found {
		log.Printf("No config directory found, using current directory. [searched: %v]", candidates(roots))
	}
	return LoadDir(dir)
}

// LoadDir reads dir/config on top of the defaults and applies environment
// overrides.
func LoadDir(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		parser := flags.NewParser(cfg, flags.IgnoreUnknown)
		if err := flags.NewIniParser(parser).ParseFile(path); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("MLBV_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("MLBV_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("MLBV_REDIS_URL"); v != "" {
		c.RedisURL = v
	}
}

// DefaultRoots lists the directories searched for an mlbv config directory.
func DefaultRoots() []string {
	roots := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".config"))
	}
	return roots
}

// FindDir returns the first <root>/mlbv or <root>/.mlbv directory holding a
// config file.
func FindDir(roots []string) (string, bool) {
	for _, dir := range candidates(roots) {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, true
		}
	}
	return ".", false
}

func candidates(roots []string) []string {
	var dirs []string
	for _, root := range roots {
		dirs = append(dirs, filepath.Join(root, AppName), filepath.Join(root, "."+AppName))
	}
	return dirs
}

// TempDir returns (and creates) the scratch directory for saved JSON
// responses.
func TempDir() (string, error) {
	dir := filepath.Join(os.TempDir(), AppName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, nil
}
