package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fortuna/mlbv/internal/config"
	"github.com/fortuna/mlbv/internal/credstore"
	"github.com/fortuna/mlbv/internal/gamedata"
	"github.com/fortuna/mlbv/internal/stream"
	"github.com/fortuna/mlbv/internal/waiter"
)

// PlayCmd plays or records a live or archived game, or its condensed game
// or recap.
type PlayCmd struct {
	GameOptions

	Inning       string `short:"i" long:"inning" description:"start at an inning: 5, t5 (top) or b5 (bottom)"`
	InningOffset *int   `long:"inning-offset" value-name:"SECS" description:"encoder delay applied to --inning, overrides stream_start_offset_secs"`
	FromStart    bool   `long:"from-start" description:"start a live game from the beginning"`
	Resolution   string `short:"r" long:"resolution" description:"stream resolution, or a comma-separated list like 720p_alt,720p,540p"`
	Fetch        bool   `long:"fetch" description:"record the stream to a file instead of playing it"`
	Wait         bool   `short:"w" long:"wait" description:"wait for a scheduled game to start"`

	opts *Options
}

func (c *PlayCmd) Execute(_ []string) error {
	ctx := c.opts.context()
	a, err := newApp(ctx, c.opts)
	if err != nil {
		return err
	}
	defer a.Close()
	c.override(a.cfg)

	date, err := c.GameOptions.date(time.Now())
	if err != nil {
		return err
	}
	game, err := selectGame(ctx, a, c.GameOptions, date)
	if err != nil {
		return err
	}

	if c.Wait && time.Now().Before(game.Start) {
		log.Printf("Waiting for game to start. Local start time is %s", game.Start.Local().Format("15:04"))
		fmt.Fprint(a.out, "Use Ctrl-c to quit. ")
		if err := waiter.UntilStart(ctx, game.Start, a.out); err != nil {
			return err
		}
		log.Printf("Game time. Refreshing game data after wait...")
		if game, err = selectGame(ctx, a, c.GameOptions, date); err != nil {
			return err
		}
	}
	if game.IsDoubleHeader() {
		log.Printf("Selected game number %d of doubleheader", game.GameNumber)
	}
	if game.AbstractState == gamedata.StatePreview && len(game.Feeds) == 0 {
		return fmt.Errorf("game %s has not started yet (starts %s), use --wait",
			game.GamePk, game.Start.Local().Format("15:04"))
	}

	feed, err := gamedata.SelectFeed(game, c.Team, c.Feed, newLogger("gamedata"))
	if err != nil {
		return err
	}
	player := stream.NewStreamlink(a.cfg, newLogger("stream"))

	if feed.IsHighlight() {
		if feed.PlaybackURL == "" {
			return fmt.Errorf("no playback url for feed '%s' with playback_scenario %s", feed.Type, a.cfg.PlaybackScenario)
		}
		var filename string
		if c.Fetch {
			filename = stream.HighlightFilename(date, game.Away.Abbrev, game.Home.Abbrev, feed.Type)
		}
		return player.PlayHighlight(ctx, feed.PlaybackURL, filename)
	}

	streamURL, ok, err := a.resolver().LookupStreamURL(ctx, game.GamePk, feed.MediaID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stream available for %s %s feed", c.Team, feed.Type)
	}

	calc := stream.NewOffsetCalculator(a.games, a.cfg.StartOffset(), newLogger("stream"))
	req, err := c.playRequest(ctx, calc, game, feed, streamURL)
	if err != nil {
		return err
	}

	// the stream URL lookup above refreshed the token if needed
	if req.AccessToken, err = a.session.AccessToken(ctx); err != nil {
		return err
	}
	if c.Fetch {
		req.FetchFilename = stream.FetchFilename(date, game.Away.Abbrev, game.Home.Abbrev, feed.Type)
	}

	return player.Run(ctx, req)
}

// override applies the command line settings that replace config values.
func (c *PlayCmd) override(cfg *config.Config) {
	if c.Resolution != "" {
		cfg.Resolution = c.Resolution
	}
	if c.InningOffset != nil {
		cfg.StreamStartOffsetSecs = *c.InningOffset
	}
}

// playRequest builds the request for a resolved game stream. An inning
// missing from the airing data leaves the offset empty, so the stream plays
// from its default start.
func (c *PlayCmd) playRequest(ctx context.Context, calc *stream.OffsetCalculator, game gamedata.Game, feed gamedata.Feed, streamURL string) (stream.PlayRequest, error) {
	req := stream.PlayRequest{StreamURL: streamURL, FromStart: c.FromStart}
	if c.Inning == "" {
		return req, nil
	}
	offset, found, err := calc.Calculate(ctx, c.Inning, feed.MediaState, game.GamePk, feed.MediaID)
	if err != nil {
		return stream.PlayRequest{}, err
	}
	if !found {
		log.Printf("Playing %s from the default start point", feed.Type)
	}
	req.Offset = offset
	return req, nil
}

// URLCmd prints the stream URL of a game for use with another player.
type URLCmd struct {
	GameOptions

	Page bool `long:"page" description:"print the mlb.com game page instead of the stream URL"`

	opts *Options
}

func (c *URLCmd) Execute(_ []string) error {
	ctx := c.opts.context()
	a, err := newApp(ctx, c.opts)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := c.GameOptions.date(time.Now())
	if err != nil {
		return err
	}
	game, err := selectGame(ctx, a, c.GameOptions, date)
	if err != nil {
		return err
	}
	if c.Page {
		fmt.Fprintf(a.out, "https://www.mlb.com/tv/g%s\n", game.GamePk)
		return nil
	}

	feed, err := gamedata.SelectFeed(game, c.Team, c.Feed, newLogger("gamedata"))
	if err != nil {
		return err
	}
	if feed.IsHighlight() {
		if feed.PlaybackURL == "" {
			return fmt.Errorf("no playback url for feed '%s' with playback_scenario %s", feed.Type, a.cfg.PlaybackScenario)
		}
		fmt.Fprintln(a.out, feed.PlaybackURL)
		return nil
	}
	streamURL, ok, err := a.resolver().LookupStreamURL(ctx, game.GamePk, feed.MediaID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no stream available for %s %s feed", c.Team, feed.Type)
	}
	fmt.Fprintln(a.out, streamURL)
	return nil
}

// TokenCmd prints a valid access token, refreshing it when expired.
type TokenCmd struct {
	opts *Options
}

func (c *TokenCmd) Execute(_ []string) error {
	ctx := c.opts.context()
	a, err := newApp(ctx, c.opts)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.session.AccessToken(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	if expiry := a.session.State().AccessTokenExpiry; expiry != nil {
		fmt.Fprintf(os.Stderr, "expires %s\n", expiry.Local().Format(time.RFC1123))
	}
	return nil
}

// LogoutCmd deletes the persisted session and cookies.
type LogoutCmd struct {
	opts *Options
}

func (c *LogoutCmd) Execute(_ []string) error {
	cfg, err := loadConfig(c.opts)
	if err != nil {
		return err
	}
	if err := credstore.Destroy(cfg.Dir); err != nil {
		return err
	}
	log.Printf("Removed session state from %s", cfg.Dir)
	return nil
}

func selectGame(ctx context.Context, a *app, g GameOptions, date string) (gamedata.Game, error) {
	games, err := a.games.Schedule(ctx, date)
	if err != nil {
		return gamedata.Game{}, err
	}
	return gamedata.FindGame(games, g.Team, g.Game)
}

func (g GameOptions) date(now time.Time) (string, error) {
	switch {
	case g.Yesterday && g.Tomorrow:
		return "", errors.New("--yesterday and --tomorrow are mutually exclusive")
	case g.Yesterday:
		return now.AddDate(0, 0, -1).Format(time.DateOnly), nil
	case g.Tomorrow:
		return now.AddDate(0, 0, 1).Format(time.DateOnly), nil
	case g.Date != "":
		return g.Date, nil
	}
	return now.Format(time.DateOnly), nil
}

func (o *Options) context() context.Context {
	if o.ctx == nil {
		return context.Background()
	}
	return o.ctx
}
