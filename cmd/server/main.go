package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ringclash/server/internal/app"
)

func main() {
	var opts app.Options
	flag.StringVar(&opts.ConfigDir, "config", ".", "directory holding ringclash.json")
	flag.StringVar(&opts.ClientDir, "client", "", "optional directory of static client files")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
}
