// Package cli implements the legalctl command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/legal-assistant/internal/core/domain"
	"github.com/kirillkom/legal-assistant/internal/core/ports"
)

// Connector builds the assistant on first use so that help and flag errors
// never touch the index or the network.
type Connector func(ctx context.Context) (ports.Assistant, func(), error)

type root struct {
	connect Connector
	asJSON  bool
}

func NewRootCommand(connect Connector) *cobra.Command {
	r := &root{connect: connect}

	cmd := &cobra.Command{
		Use:           "legalctl",
		Short:         "Query and maintain the legal document assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&r.asJSON, "json", false, "print results as JSON")

	cmd.AddCommand(
		r.ingestCommand(),
		r.askCommand(),
		r.purgeCommand(),
		r.modelsCommand(),
	)
	return cmd
}

func (r *root) withAssistant(cmd *cobra.Command, fn func(ports.Assistant) error) error {
	assistant, closeFn, err := r.connect(cmd.Context())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(assistant)
}

func (r *root) ingestCommand() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Index PDF, XLSX or text files into a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := domain.ValidateCategory(category); err != nil {
				return err
			}
			docs, err := readFiles(args)
			if err != nil {
				return err
			}
			return r.withAssistant(cmd, func(a ports.Assistant) error {
				if !a.Ingest(cmd.Context(), category, docs) {
					return fmt.Errorf("ingest into %s failed", category)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: Success (%d files)\n", category, len(docs))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "Laws", "target category")
	return cmd
}

func (r *root) askCommand() *cobra.Command {
	var (
		modelType  string
		modelName  string
		host       string
		categories []string
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question grounded in the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withAssistant(cmd, func(a ports.Assistant) error {
				result, err := a.Answer(cmd.Context(), domain.AnswerRequest{
					Question:     strings.Join(args, " "),
					Categories:   categories,
					Backend:      modelType,
					Model:        modelName,
					HostOverride: host,
				})
				if err != nil {
					return err
				}
				if r.asJSON {
					return printJSON(cmd, result)
				}
				fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
				if !result.Grounded && !result.Failed {
					cmd.PrintErrln("(no matching passages were found)")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&modelType, "model-type", "t", "Gemini", "backend family: Gemini or Ollama")
	cmd.Flags().StringVarP(&modelName, "model", "m", "", "model name")
	cmd.Flags().StringVar(&host, "ollama-host", "", "explicit Ollama host URL")
	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "categories to search (repeatable)")
	return cmd
}

func (r *root) purgeCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge [categories...]",
		Short: "Delete category indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && len(args) > 0:
				return fmt.Errorf("pass either categories or --all, not both")
			case !all && len(args) == 0:
				return fmt.Errorf("name at least one category or pass --all")
			}
			for _, c := range args {
				if err := domain.ValidateCategory(c); err != nil {
					return err
				}
			}
			return r.withAssistant(cmd, func(a ports.Assistant) error {
				if all {
					if !a.PurgeAll(cmd.Context()) {
						return fmt.Errorf("purge failed")
					}
					fmt.Fprintln(cmd.OutOrStdout(), "purged all categories")
					return nil
				}
				if !a.Purge(cmd.Context(), args) {
					return fmt.Errorf("purge failed")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %s\n", strings.Join(args, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every category")
	return cmd
}

func (r *root) modelsCommand() *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List available models and the Ollama connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withAssistant(cmd, func(a ports.Assistant) error {
				catalog := a.ListModels(cmd.Context(), host)
				if r.asJSON {
					return printJSON(cmd, catalog)
				}
				state := "not connected"
				if catalog.Local.Reachable {
					state = "connected"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ollama %s (%s, %s)\n", state, catalog.Local.Host, catalog.Local.Mode)
				for _, m := range catalog.Local.Models {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m)
				}
				if !catalog.HostedConfigured {
					fmt.Fprintln(cmd.OutOrStdout(), "Gemini not configured")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Gemini")
				for _, m := range catalog.HostedModels {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&host, "ollama-host", "", "explicit Ollama host URL")
	return cmd
}

func readFiles(paths []string) ([]domain.RawDocument, error) {
	docs := make([]domain.RawDocument, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.RawDocument{
			Filename: filepath.Base(path),
			MimeType: mime.TypeByExtension(filepath.Ext(path)),
			Data:     data,
		})
	}
	return docs, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
