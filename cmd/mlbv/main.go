package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/fortuna/mlbv/internal/auth"
	"github.com/fortuna/mlbv/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and returns the exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	opts := &Options{ctx: ctx}
	opts.Init(commandName(args))

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = config.AppName
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	return 0
}

// commandName returns the first positional argument, skipping global flags
// and their values.
func commandName(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return ""
		case a == "-c" || a == "--config-dir":
			i++
		case strings.HasPrefix(a, "-"):
		default:
			return a
		}
	}
	return ""
}

// describe turns the errors a user can act on into instructions.
func describe(err error) string {
	var (
		credErr   *auth.CredentialsInvalidError
		scrapeErr *auth.KeyScrapeError
		sessErr   *auth.SessionError
	)
	switch {
	case errors.As(err, &credErr):
		return fmt.Sprintf("%v\nCheck username and password in the config file, or set MLBV_USERNAME and MLBV_PASSWORD.", err)
	case errors.As(err, &scrapeErr):
		return fmt.Sprintf("%v\nThe MLB.tv page layout may have changed. Try scrape_with_browser=true in the config file.", err)
	case errors.Is(err, auth.ErrLoginRequired):
		return fmt.Sprintf("%v\nThe identity provider still requires a login. Run 'mlbv logout' and try again.", err)
	case errors.As(err, &sessErr):
		return fmt.Sprintf("%v\nRe-run with --debug to log the upstream requests.", err)
	case errors.Is(err, context.Canceled):
		return "Interrupted"
	}
	return fmt.Sprintf("mlbv: %v", err)
}
