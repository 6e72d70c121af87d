package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/resper/paperless-onS/internal/core/ports"
)

var version = "1.0.0"

// services is what the commands need from the application.
type services struct {
	processor ports.DocumentProcessor
	previewer ports.PromptPreviewer
	extractor ports.TextExtractionService
	history   ports.HistoryReader
	scheduler ports.ProcessScheduler
	mcp       func() *server.MCPServer
}

type connector func(ctx context.Context, withQueue bool) (*services, func(), error)

func newRootCmd(connect connector, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "onsctl",
		Short: "Analyse Paperless-NGX documents with a language model",
		Long: `onsctl runs the document analysis pipeline without the HTTP API.

It reads the same environment as the api and worker services
(PAPERLESS_URL, PAPERLESS_TOKEN, OPENAI_API_KEY, POSTGRES_DSN, ...)
and a .env file in the working directory.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newProcessCmd(connect),
		newPromptCmd(connect),
		newExtractCmd(connect),
		newHistoryCmd(connect),
		newMCPCmd(connect),
	)
	return root
}

func documentIDArg(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("document id must be a positive integer, got %q", raw)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withServices connects, runs fn and releases the application.
func withServices(cmd *cobra.Command, connect connector, withQueue bool, fn func(*services) error) error {
	svc, release, err := connect(cmd.Context(), withQueue)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if release != nil {
		defer release()
	}
	if svc == nil {
		return errors.New("connect: no services")
	}
	return fn(svc)
}
