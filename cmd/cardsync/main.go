package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/cardsync/internal/client/app"
	"github.com/dmitrijs2005/cardsync/internal/client/config"
	"github.com/dmitrijs2005/cardsync/internal/flagx"
)

const usage = "usage: cardsync [flags] <migrate|report|serve>"

func main() {
	args := flagx.Positional(os.Args[1:], config.ValueFlags)
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx, args[0]); err != nil {
		log.Fatalf("%v", err)
	}
}
