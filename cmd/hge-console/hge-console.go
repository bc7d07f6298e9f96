// Package main is the entrypoint for the command line executable.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/hasura/graphql-engine/console/commands"
)

// main is the entrypoint function
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}
