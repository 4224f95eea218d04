package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"tunebridge/internal/server"
)

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	stack, err := r.connect()
	if err != nil {
		return err
	}
	defer stack.Close()

	addr := cmd.String("addr")
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}

	srv := server.NewServer(addr, stack.catalog, stack.creds, stack.sync, stack.engine, stack.library, r.logger)
	return srv.Run()
}
