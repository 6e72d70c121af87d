// Command onsctl runs the analysis pipeline from the shell and serves the
// MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	httpadapter "github.com/resper/paperless-onS/internal/adapters/http"
	"github.com/resper/paperless-onS/internal/bootstrap"
	"github.com/resper/paperless-onS/internal/config"
	"github.com/resper/paperless-onS/internal/observability/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(connectApp, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connectApp builds the full application. Logs go to stderr so stdout stays
// usable for JSON output and the MCP stdio transport.
func connectApp(ctx context.Context, withQueue bool) (*services, func(), error) {
	cfg := config.Load()
	logger := logging.New(os.Stderr, "onsctl", cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger, SkipQueue: !withQueue})
	if err != nil {
		return nil, nil, err
	}
	deps := app.HTTPDependencies()
	svc := &services{
		processor: deps.Processor,
		previewer: deps.Previewer,
		extractor: deps.Extractor,
		history:   deps.History,
		scheduler: deps.Scheduler,
		mcp: func() *server.MCPServer {
			return httpadapter.NewMCPServer(deps, logger)
		},
	}
	return svc, app.Close, nil
}
