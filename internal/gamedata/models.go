package gamedata

import (
	"encoding/json"
	"strings"
	"time"
)

// Abstract game states reported by the schedule.
const (
	StatePreview = "Preview"
	StateLive    = "Live"
	StateFinal   = "Final"
)

// Highlight feed types. They are not MLB.tv streams: their playback URL is
// public and needs no session.
const (
	FeedCondensed = "condensed"
	FeedRecap     = "recap"
)

// Team is one side of a game.
type Team struct {
	Abbrev  string
	Display string
	Brief   string
	Full    string
}

// Feed is one MLB.tv broadcast of a game.
type Feed struct {
	// Type is the lower-cased media feed type: home, away, national, ...
	Type        string
	MediaID     string
	MediaState  string
	EventID     string
	CallLetters string

	// PlaybackURL is set on highlight feeds for the configured playback
	// scenario.
	PlaybackURL string
}

// IsHighlight reports whether f is a condensed game or recap.
func (f Feed) IsHighlight() bool {
	return f.Type == FeedCondensed || f.Type == FeedRecap
}

// Game is a scheduled game and its video feeds. Preview games carry no
// feeds.
type Game struct {
	GamePk        string
	AbstractState string
	DetailedState string
	DoubleHeader  string
	GameNumber    int
	Start         time.Time
	Away          Team
	Home          Team
	Feeds         []Feed
}

// IsDoubleHeader reports whether the game is part of a doubleheader.
func (g Game) IsDoubleHeader() bool {
	return g.DoubleHeader != "" && g.DoubleHeader != "N"
}

// Feed returns the feed of the given type.
func (g Game) Feed(feedType string) (Feed, bool) {
	for _, f := range g.Feeds {
		if f.Type == feedType {
			return f, true
		}
	}
	return Feed{}, false
}

// HasTeam reports whether abbrev plays in the game.
func (g Game) HasTeam(abbrev string) bool {
	abbrev = strings.ToLower(abbrev)
	return g.Away.Abbrev == abbrev || g.Home.Abbrev == abbrev
}

// schedule API payloads

type scheduleResponse struct {
	Dates []struct {
		Date  string         `json:"date"`
		Games []scheduleGame `json:"games"`
	} `json:"dates"`
}

type scheduleGame struct {
	GamePk       int64  `json:"gamePk"`
	GameDate     string `json:"gameDate"`
	DoubleHeader string `json:"doubleHeader"`
	GameNumber   int    `json:"gameNumber"`
	Status       struct {
		AbstractGameState string `json:"abstractGameState"`
		DetailedState     string `json:"detailedState"`
	} `json:"status"`
	Teams struct {
		Away scheduleSide `json:"away"`
		Home scheduleSide `json:"home"`
	} `json:"teams"`
	Content struct {
		Media *struct {
			EPG []struct {
				Title string `json:"title"`
				Items []struct {
					ID            string `json:"id"`
					MediaID       string `json:"mediaId"`
					MediaState    string `json:"mediaState"`
					MediaFeedType string `json:"mediaFeedType"`
					CallLetters   string `json:"callLetters"`
				} `json:"items"`
			} `json:"epg"`
			EPGAlternate []struct {
				Title string `json:"title"`
				Items []struct {
					MediaPlaybackID string `json:"mediaPlaybackId"`
					Playbacks       []struct {
						Name string `json:"name"`
						URL  string `json:"url"`
					} `json:"playbacks"`
				} `json:"items"`
			} `json:"epgAlternate"`
		} `json:"media"`
	} `json:"content"`
}

// scheduleSide covers both team shapes the API has served: a name object
// with abbrev, or flat abbreviation fields.
type scheduleSide struct {
	Team struct {
		Name         json.RawMessage `json:"name"`
		Abbreviation string          `json:"abbreviation"`
		ShortName    string          `json:"shortName"`
		TeamName     string          `json:"teamName"`
	} `json:"team"`
}

func (s scheduleSide) team() Team {
	var nested struct {
		Abbrev  string `json:"abbrev"`
		Display string `json:"display"`
		Brief   string `json:"brief"`
		Full    string `json:"full"`
	}
	if len(s.Team.Name) > 0 && json.Unmarshal(s.Team.Name, &nested) == nil && nested.Abbrev != "" {
		return Team{
			Abbrev:  strings.ToLower(nested.Abbrev),
			Display: nested.Display,
			Brief:   nested.Brief,
			Full:    nested.Full,
		}
	}

	var full string
	_ = json.Unmarshal(s.Team.Name, &full)
	if s.Team.Abbreviation == "" {
		return Team{Abbrev: "n/a", Display: "n/a", Brief: "n/a", Full: "n/a"}
	}
	return Team{
		Abbrev:  strings.ToLower(s.Team.Abbreviation),
		Display: s.Team.ShortName,
		Brief:   s.Team.TeamName,
		Full:    full,
	}
}

// airings API payloads

type airingsResponse struct {
	Data struct {
		Airings []airing `json:"Airings"`
	} `json:"data"`
}

type airing struct {
	MediaID    string      `json:"mediaId"`
	Milestones []milestone `json:"milestones"`
}

type milestone struct {
	MilestoneType string `json:"milestoneType"`
	MilestoneTime []struct {
		Type          string `json:"type"`
		StartDatetime string `json:"startDatetime"`
	} `json:"milestoneTime"`
	Keywords []struct {
		Type  string      `json:"type"`
		Value scalarValue `json:"value"`
	} `json:"keywords"`
}

// absoluteStart returns the absolute start time of the milestone.
func (m milestone) absoluteStart() (time.Time, bool) {
	for _, mt := range m.MilestoneTime {
		if mt.Type != "absolute" {
			continue
		}
		t, err := time.Parse(time.RFC3339, mt.StartDatetime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// scalarValue accepts a JSON string, number or bool as its text.
type scalarValue string

func (v *scalarValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = scalarValue(s)
		return nil
	}
	*v = scalarValue(strings.TrimSpace(string(b)))
	return nil
}
