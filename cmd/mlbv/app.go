package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fortuna/mlbv/internal/auth"
	"github.com/fortuna/mlbv/internal/cache"
	"github.com/fortuna/mlbv/internal/config"
	"github.com/fortuna/mlbv/internal/credstore"
	"github.com/fortuna/mlbv/internal/gamedata"
	"github.com/fortuna/mlbv/internal/scrape"
	"github.com/fortuna/mlbv/internal/stream"
)

// app holds the collaborators a command needs. Close releases them.
type app struct {
	cfg     *config.Config
	store   *credstore.Store
	session *auth.Session
	games   *gamedata.Client
	out     io.Writer

	closers []func()
}

func newApp(ctx context.Context, opts *Options) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	store, err := credstore.Open(cfg.Dir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store, out: os.Stdout}

	httpClient := auth.NewHTTPClient(store.Jar(), cfg.VerifySSL)
	sessOpts := auth.Options{
		Username:   cfg.Username,
		Password:   cfg.Password,
		HTTPClient: httpClient,
		Logger:     newLogger("auth"),
		Debug:      cfg.Debug,
	}
	if cfg.ScrapeWithBrowser {
		browser := scrape.NewBrowserFetcher()
		a.closers = append(a.closers, browser.Close)
		sessOpts.KeyPageFetcher = browser
	}
	a.session, err = auth.New(store, sessOpts)
	if err != nil {
		a.Close()
		return nil, err
	}

	gdOpts := gamedata.Options{
		APIURL:           cfg.APIURL,
		Fetcher:          scrape.NewHTTPFetcher(httpClient),
		PlaybackScenario: cfg.PlaybackScenario,
		Logger:           newLogger("gamedata"),
	}
	if cfg.SaveJSONFile {
		if dir, err := config.TempDir(); err == nil {
			gdOpts.SaveDir = dir
		} else {
			log.Printf("Not saving JSON responses: %v", err)
		}
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("Redis cache disabled: %v", err)
		} else {
			a.closers = append(a.closers, func() { rc.Close() })
			gdOpts.Cache = rc
		}
	}
	a.games = gamedata.NewClient(gdOpts)

	return a, nil
}

func loadConfig(opts *Options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigDir != "" {
		cfg, err = config.LoadDir(opts.ConfigDir)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Debug = true
	}
	if opts.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(component string) *log.Logger {
	return log.New(log.Writer(), fmt.Sprintf("[%s] ", component), log.LstdFlags)
}

func (a *app) resolver() *stream.Resolver {
	var saveDir string
	if a.cfg.SaveJSONFile {
		saveDir, _ = config.TempDir()
	}
	return stream.NewResolver(a.session, saveDir, newLogger("stream"))
}

// Close releases the browser and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
