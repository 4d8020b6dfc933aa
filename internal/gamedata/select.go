package gamedata

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

var (
	ErrGameNotFound = errors.New("no game found")
	ErrFeedNotFound = errors.New("feed is not available")
)

// feedAliases maps the short feed codes accepted on the command line to
// schedule feed types.
var feedAliases = map[string]string{
	"a":   "away",
	"h":   "home",
	"fr":  "french",
	"nat": "national",
	"ima": "in_market_away",
	"imh": "in_market_home",
	"cnd": FeedCondensed,
	"rcp": FeedRecap,
}

// NormalizeFeed expands a short feed code. Unknown codes are returned
// lower-cased.
func NormalizeFeed(feedType string) string {
	feedType = strings.ToLower(strings.TrimSpace(feedType))
	if full, ok := feedAliases[feedType]; ok {
		return full
	}
	return feedType
}

// FindGame returns the game team plays in. gameNumber selects the game of a
// doubleheader; zero means the first.
func FindGame(games []Game, team string, gameNumber int) (Game, error) {
	if gameNumber < 1 {
		gameNumber = 1
	}
	team = strings.ToLower(team)
	for _, g := range games {
		if !g.HasTeam(team) {
			continue
		}
		if g.IsDoubleHeader() && g.GameNumber != gameNumber {
			continue
		}
		return g, nil
	}
	if gameNumber > 1 {
		return Game{}, fmt.Errorf("%w: no second game available for team %s", ErrGameNotFound, team)
	}
	return Game{}, fmt.Errorf("%w for team %s", ErrGameNotFound, team)
}

// SelectFeed picks the feed to play for team. With no feedType the team's
// own home or away feed is preferred, then the first game feed listed.
// Highlights are only returned when asked for by type.
func SelectFeed(g Game, team, feedType string, logger *log.Logger) (Feed, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[gamedata] ", log.LstdFlags)
	}
	team = strings.ToLower(team)
	if !g.HasTeam(team) {
		return Feed{}, fmt.Errorf("%w: %s does not play in game %s", ErrGameNotFound, team, g.GamePk)
	}

	if feedType = NormalizeFeed(feedType); feedType == "" {
		side := "home"
		if g.Away.Abbrev == team {
			side = "away"
		}
		if f, ok := g.Feed(side); ok {
			return f, nil
		}
		logger.Printf("Default (home/away) feed not found: choosing first available feed")
		for _, f := range g.Feeds {
			if f.IsHighlight() {
				continue
			}
			logger.Printf("Chose '%s' feed (override with --feed option)", f.Type)
			return f, nil
		}
		return Feed{}, fmt.Errorf("%w: game %s has no feeds", ErrFeedNotFound, g.GamePk)
	}

	if f, ok := g.Feed(feedType); ok {
		return f, nil
	}
	return Feed{}, fmt.Errorf("%w: %s", ErrFeedNotFound, feedType)
}
