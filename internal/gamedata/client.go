package gamedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fortuna/mlbv/internal/cache"
	"github.com/fortuna/mlbv/internal/scrape"
)

const (
	DefaultAPIURL = "https://statsapi.mlb.com"

	// DefaultAiringsURL is the persisted search query listing the airings of
	// a game, with their milestones.
	DefaultAiringsURL = "https://search-api-mlbtv.mlb.com/svc/search/v2/graphql/persisted/query/core/Airings"

	scheduleHydrate = "broadcasts(all),game(content(all)),linescore,team"

	// DefaultCacheTTL bounds how stale a cached schedule may be. Media
	// states change when a game goes live.
	DefaultCacheTTL = 60 * time.Second

	// DefaultPlaybackScenario names the highlight rendition picked from an
	// epgAlternate item.
	DefaultPlaybackScenario = "HTTP_CLOUD_WIRED_60"
)

// ErrInvalidDate is a date that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// Cache stores raw responses. Get returns cache.ErrMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Client.
type Options struct {
	APIURL     string
	AiringsURL string

	// Fetcher performs the GETs. Defaults to a plain HTTP fetcher.
	Fetcher scrape.Fetcher

	// Cache is optional.
	Cache    Cache
	CacheTTL time.Duration

	// SaveDir, when set, receives the raw gamedata.json and airings.json.
	SaveDir string

	// PlaybackScenario selects the highlight playback URL.
	PlaybackScenario string

	Logger *log.Logger
}

// Client reads the schedule and broadcast milestones from the stats and
// search APIs. No authentication is needed.
type Client struct {
	apiURL     string
	airingsURL string
	fetcher    scrape.Fetcher
	cache      Cache
	cacheTTL   time.Duration
	saveDir    string
	scenario   string
	logger     *log.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.AiringsURL == "" {
		opts.AiringsURL = DefaultAiringsURL
	}
	if opts.Fetcher == nil {
		opts.Fetcher = scrape.NewHTTPFetcher(nil)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.PlaybackScenario == "" {
		opts.PlaybackScenario = DefaultPlaybackScenario
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[gamedata] ", log.LstdFlags)
	}
	return &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		airingsURL: opts.AiringsURL,
		fetcher:    opts.Fetcher,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		saveDir:    opts.SaveDir,
		scenario:   opts.PlaybackScenario,
		logger:     opts.Logger,
	}
}

// Today returns the local date in schedule format.
func Today() string {
	return time.Now().Format(time.DateOnly)
}

// Schedule returns the games scheduled on date (YYYY-MM-DD). An empty date
// means today. A day without games returns an empty slice.
func (c *Client) Schedule(ctx context.Context, date string) ([]Game, error) {
	if date == "" {
		date = Today()
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	q := url.Values{}
	q.Set("sportId", "1")
	q.Set("startDate", date)
	q.Set("endDate", date)
	q.Set("hydrate", scheduleHydrate)
	endpoint := c.apiURL + "/api/v1/schedule?" + q.Encode()

	body, err := c.cachedFetch(ctx, "schedule:"+date, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching schedule for %s: %w", date, err)
	}
	c.save("gamedata.json", body)

	var resp scheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding schedule for %s: %w", date, err)
	}
	if len(resp.Dates) == 0 {
		c.logger.Printf("No game data for %s", date)
		return []Game{}, nil
	}

	games := make([]Game, 0, len(resp.Dates[0].Games))
	for _, sg := range resp.Dates[0].Games {
		games = append(games, c.toGame(sg))
	}
	return games, nil
}

func (c *Client) toGame(sg scheduleGame) Game {
	g := Game{
		GamePk:        strconv.FormatInt(sg.GamePk, 10),
		AbstractState: sg.Status.AbstractGameState,
		DetailedState: sg.Status.DetailedState,
		DoubleHeader:  sg.DoubleHeader,
		GameNumber:    sg.GameNumber,
		Away:          sg.Teams.Away.team(),
		Home:          sg.Teams.Home.team(),
	}
	if start, err := time.Parse(time.RFC3339, sg.GameDate); err == nil {
		g.Start = start.UTC()
	} else {
		c.logger.Printf("Game %s: unparseable gameDate %q", g.GamePk, sg.GameDate)
	}

	if g.AbstractState == StatePreview || sg.Content.Media == nil {
		return g
	}
	for _, epg := range sg.Content.Media.EPG {
		if epg.Title != "MLBTV" {
			continue
		}
		for _, item := range epg.Items {
			if item.MediaFeedType == "COMPOSITE" || item.MediaFeedType == "ISO" || item.MediaID == "" {
				continue
			}
			g.Feeds = append(g.Feeds, Feed{
				Type:        strings.ToLower(item.MediaFeedType),
				MediaID:     item.MediaID,
				MediaState:  item.MediaState,
				EventID:     item.ID,
				CallLetters: item.CallLetters,
			})
		}
	}
	for _, alt := range sg.Content.Media.EPGAlternate {
		var feedType string
		switch alt.Title {
		case "Extended Highlights":
			feedType = FeedCondensed
		case "Daily Recap":
			feedType = FeedRecap
		default:
			continue
		}
		if len(alt.Items) == 0 {
			continue
		}
		item := alt.Items[0]
		f := Feed{Type: feedType, MediaID: item.MediaPlaybackID}
		for _, pb := range item.Playbacks {
			if pb.Name == c.scenario {
				f.PlaybackURL = pb.URL
				break
			}
		}
		g.Feeds = append(g.Feeds, f)
	}
	return g
}

// InningStart looks up the start of a half inning in the airing of mediaID.
// broadcastStart may be set even when the inning is not found.
func (c *Client) InningStart(ctx context.Context, gamePk, mediaID string, inning int, top bool) (broadcastStart, inningStart time.Time, found bool, err error) {
	variables := fmt.Sprintf(`{"partnerProgramIds":[%q]}`, gamePk)
	endpoint := c.airingsURL + "?" + url.Values{"variables": {variables}}.Encode()

	body, err := c.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("fetching airings for game %s: %w", gamePk, err)
	}
	c.save("airings.json", []byte(body))

	var resp airingsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("decoding airings for game %s: %w", gamePk, err)
	}

	wantInning := strconv.Itoa(inning)
	for _, a := range resp.Data.Airings {
		// each broadcast has its own BROADCAST_START
		if a.MediaID != mediaID {
			continue
		}
		if len(a.Milestones) == 0 {
			c.logger.Printf("No milestone data for airing %s", a.MediaID)
			continue
		}
		for _, m := range a.Milestones {
			switch m.MilestoneType {
			case "BROADCAST_START":
				if t, ok := m.absoluteStart(); ok {
					broadcastStart = t
				}
			case "INNING_START":
				mInning, mTop := "1", true
				for _, kw := range m.Keywords {
					switch kw.Type {
					case "inning":
						mInning = string(kw.Value)
					case "top":
						if kw.Value != "true" {
							mTop = false
						}
					}
				}
				if mInning != wantInning || mTop != top {
					continue
				}
				if t, ok := m.absoluteStart(); ok {
					c.logger.Printf("Found inning start: %s", t.Format(time.RFC3339))
					return broadcastStart, t, true, nil
				}
			}
		}
	}

	half := "top"
	if !top {
		half = "bottom"
	}
	c.logger.Printf("Could not locate '%s %d' inning", half, inning)
	return broadcastStart, time.Time{}, false, nil
}

func (c *Client) cachedFetch(ctx context.Context, key, endpoint string) ([]byte, error) {
	if c.cache != nil {
		b, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			return b, nil
		case !errors.Is(err, cache.ErrMiss):
			c.logger.Printf("Cache get %s failed: %v", key, err)
		}
	}

	body, err := c.fetcher.Fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, []byte(body), c.cacheTTL); err != nil {
			c.logger.Printf("Cache set %s failed: %v", key, err)
		}
	}
	return []byte(body), nil
}

func (c *Client) save(name string, body []byte) {
	if c.saveDir == "" {
		return
	}
	path := filepath.Join(c.saveDir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		c.logger.Printf("Failed to save %s: %v", path, err)
	}
}
