package main

import "context"

// Options is the root command that groups sub-commands. The struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	ConfigDir string `short:"c" long:"config-dir" description:"directory holding the config file and session state"`
	Debug     bool   `long:"debug" description:"log every upstream request and response"`
	Verbose   bool   `short:"v" long:"verbose" description:"verbose output, also passed to streamlink"`

	Play   *PlayCmd   `command:"play"   description:"Play or record a game"`
	URL    *URLCmd    `command:"url"    description:"Print the stream URL of a game"`
	Token  *TokenCmd  `command:"token"  description:"Print a valid access token"`
	Logout *LogoutCmd `command:"logout" description:"Delete the saved session and cookies"`

	ctx context.Context
}

// Init instantiates the sub-command referenced by the first argument so that
// flags.Parse can populate its fields.
func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "play":
		o.Play = &PlayCmd{opts: o}
	case "url":
		o.URL = &URLCmd{opts: o}
	case "token":
		o.Token = &TokenCmd{opts: o}
	case "logout":
		o.Logout = &LogoutCmd{opts: o}
	}
}

// GameOptions selects a game and one of its feeds.
type GameOptions struct {
	Team      string `short:"t" long:"team" description:"team code, e.g. tor or nyy" required:"yes"`
	Date      string `short:"d" long:"date" description:"game date, YYYY-MM-DD (default today)"`
	Yesterday bool   `long:"yesterday" description:"use yesterday's date"`
	Tomorrow  bool   `long:"tomorrow" description:"use tomorrow's date"`
	Feed      string `short:"f" long:"feed" description:"feed type: home, away, national, french, ... or a/h/nat/fr"`
	Game      int    `short:"g" long:"game" default:"1" description:"game number of a doubleheader"`
}
