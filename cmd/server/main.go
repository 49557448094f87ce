// Command server runs the codewizard learning platform API.
//
//	server serve              # HTTP API + session sweeper
//	server migrate            # apply schema migrations
//	server sweep              # clear expired sessions once
//	server promote <email>    # make an existing account an admin
//
// Configuration comes from an optional YAML file (--config or CONFIG_PATH)
// overlaid by environment variables such as PORT and DB_PATH.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/codewizard/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
