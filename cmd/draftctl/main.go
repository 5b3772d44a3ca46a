// Command draftctl is a terminal draft board that edits rosters locally and
// saves them to the draft server in one batch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"

	"github.com/Billy-Davies-2/esccup-draft/internal/client"
	"github.com/Billy-Davies-2/esccup-draft/internal/draft"
	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
)

type options struct {
	APIURL        string `env:"DRAFT_API_URL" envDefault:"http://localhost:3000"`
	AdminPassword string `env:"DRAFT_ADMIN_PASSWORD"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"warn"`
}

func main() {
	var opts options
	if err := env.Parse(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "invalid environment:", err)
		os.Exit(1)
	}
	logger.Init(opts.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.New(opts.APIURL)
	if opts.AdminPassword != "" {
		if err := api.Login(ctx, opts.AdminPassword); err != nil {
			fmt.Fprintln(os.Stderr, "login failed:", err)
			os.Exit(1)
		}
	}

	session := draft.NewSession(nil, draft.NewSynchronizer(api), draft.DefaultRules())
	if err := session.Reload(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "could not load board from %s: %v\n", opts.APIURL, err)
		os.Exit(1)
	}

	r := newREPL(session, os.Stdout)
	r.breaker = api.State
	if err := r.Run(ctx, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
