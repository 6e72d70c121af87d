package main

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func newProcessCmd(connect connector) *cobra.Command {
	var (
		autoUpdate bool
		async      bool
		clearTags  bool
		mode       string
		policy     string
		configID   int64
		language   string
	)
	cmd := &cobra.Command{
		Use:   "process <document-id>",
		Short: "Analyse a document and optionally write the suggested metadata back",
		Example: `  onsctl process 42
  onsctl process 42 --auto-update --mode ai_ocr
  onsctl process 42 --async`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := documentIDArg(args[0])
			if err != nil {
				return err
			}
			textMode, ok := domain.ParseTextSourceMode(mode)
			if mode == "" {
				textMode = ""
			}
			if !ok {
				return fmt.Errorf("--mode must be paperless or ai_ocr, got %q", mode)
			}
			entityPolicy, ok := domain.ParseEntityPolicy(policy)
			if !ok {
				return fmt.Errorf("--entity-policy must be reuse or create, got %q", policy)
			}
			req := domain.ProcessRequest{
				DocumentID:        id,
				AutoUpdate:        autoUpdate,
				TextSourceMode:    textMode,
				EntityPolicy:      entityPolicy,
				ClearExistingTags: clearTags,
				Language:          language,
			}
			if configID > 0 {
				req.PromptConfigurationID = &configID
			}

			return withServices(cmd, connect, async, func(svc *services) error {
				if async {
					if svc.scheduler == nil {
						return errors.New("--async needs NATS_URL")
					}
					if err := svc.scheduler.Enqueue(cmd.Context(), req); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "queued document %d\n", id)
					return nil
				}
				result, err := svc.processor.Process(cmd.Context(), req)
				if result != nil {
					if printErr := printJSON(cmd, result); printErr != nil {
						return printErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&autoUpdate, "auto-update", false, "write the suggested metadata back to Paperless-NGX")
	cmd.Flags().BoolVar(&async, "async", false, "queue the document for the worker instead of processing inline")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "replace the document's tags instead of merging")
	cmd.Flags().StringVar(&mode, "mode", "", "text source: paperless or ai_ocr (default from settings)")
	cmd.Flags().StringVar(&policy, "entity-policy", "", "unmatched names: reuse or create")
	cmd.Flags().Int64Var(&configID, "config-id", 0, "saved prompt configuration to analyse with")
	cmd.Flags().StringVar(&language, "lang", "en", "language of user-facing messages")
	return cmd
}

func newPromptCmd(connect connector) *cobra.Command {
	var configID int64
	cmd := &cobra.Command{
		Use:   "prompt <document-id>",
		Short: "Render the prompt a document would be analysed with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := documentIDArg(args[0])
			if err != nil {
				return err
			}
			req := domain.PromptPreviewRequest{DocumentID: id}
			if configID > 0 {
				req.ConfigurationID = &configID
			}
			return withServices(cmd, connect, false, func(svc *services) error {
				preview, err := svc.previewer.Preview(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd, preview)
			})
		},
	}
	cmd.Flags().Int64Var(&configID, "config-id", 0, "saved prompt configuration to render with")
	return cmd
}

func newExtractCmd(connect connector) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <document-id>",
		Short: "Run the local PDF text extraction on a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := documentIDArg(args[0])
			if err != nil {
				return err
			}
			return withServices(cmd, connect, false, func(svc *services) error {
				result, err := svc.extractor.ExtractText(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func newHistoryCmd(connect connector) *cobra.Command {
	var (
		documentID int
		status     string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent processing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := domain.HistoryFilter{Status: domain.ProcessingStatus(status), Limit: limit}
			switch filter.Status {
			case "", domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed:
			default:
				return fmt.Errorf("--status must be processing, completed or failed, got %q", status)
			}
			if documentID > 0 {
				filter.DocumentID = &documentID
			}
			return withServices(cmd, connect, false, func(svc *services) error {
				records, err := svc.history.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printJSON(cmd, records)
			})
		},
	}
	cmd.Flags().IntVar(&documentID, "document-id", 0, "only runs of this document")
	cmd.Flags().StringVar(&status, "status", "", "processing, completed or failed")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")
	return cmd
}

func newMCPCmd(connect connector) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, connect, false, func(svc *services) error {
				if svc.mcp == nil {
					return errors.New("mcp server is not available")
				}
				return server.ServeStdio(svc.mcp())
			})
		},
	}
}
