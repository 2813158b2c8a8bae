package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexora-app/lexora/internal/core/domain"
)

type servicesFunc func(cmd *cobra.Command) (*Services, error)

func withServices(services servicesFunc, run func(cmd *cobra.Command, args []string, svc *Services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		if svc.Close != nil {
			defer svc.Close()
		}
		return run(cmd, args, svc)
	}
}

func newClassifyCommand(opts *options, services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file]",
		Short: "Classify a document file, or stdin when no file (or -) is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: withServices(services, func(cmd *cobra.Command, args []string, svc *Services) error {
			ctx := cmd.Context()
			var analysis domain.DocumentAnalysis

			if len(args) == 0 || args[0] == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				analysis, err = svc.Analyzer.AnalyzeText(ctx, string(raw))
				if err != nil {
					return err
				}
			} else {
				session, err := analyzeFile(cmd, svc, args[0])
				if err != nil {
					return err
				}
				if session.Analysis != nil {
					analysis = *session.Analysis
				}
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), analysis)
			}
			writeAnalysisText(cmd.OutOrStdout(), analysis)
			return nil
		}),
	}
}

func analyzeFile(cmd *cobra.Command, svc *Services, path string) (*domain.AnalysisSession, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	mimeType, _ := domain.MimeTypeForExtension(filepath.Ext(path))
	return svc.Analyzer.Analyze(cmd.Context(), filepath.Base(path), mimeType, info.Size(), file)
}

func newAskCommand(opts *options, services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the chat dictionary",
		Args:  cobra.MinimumNArgs(1),
		RunE: withServices(services, func(cmd *cobra.Command, args []string, svc *Services) error {
			exchange, err := svc.Chat.Ask(cmd.Context(), "", strings.Join(args, " "))
			if err != nil {
				return err
			}
			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), exchange)
			}
			fmt.Fprintln(cmd.OutOrStdout(), exchange.Answer)
			return nil
		}),
	}
}

func newQuestionsCommand(opts *options, services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List suggested questions",
		Args:  cobra.NoArgs,
		RunE: withServices(services, func(cmd *cobra.Command, _ []string, svc *Services) error {
			questions := svc.Chat.SuggestedQuestions()
			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"questions": questions})
			}
			for _, q := range questions {
				fmt.Fprintln(cmd.OutOrStdout(), "-", q)
			}
			return nil
		}),
	}
}

func newRulesCommand(services servicesFunc) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rulebook as YAML",
		Args:  cobra.NoArgs,
		RunE: withServices(services, func(cmd *cobra.Command, _ []string, svc *Services) error {
			if svc.Rules == nil {
				return errors.New("no rulebook loaded")
			}
			if check {
				fmt.Fprintf(cmd.OutOrStdout(), "rulebook ok: %d keywords, %d phrases, %d type rules, %d clauses, %d chat responses\n",
					len(svc.Rules.LegalDetection.Keywords),
					len(svc.Rules.LegalDetection.Phrases),
					len(svc.Rules.DocumentTypes.Rules),
					len(svc.Rules.Clauses),
					len(svc.Rules.Chat.Responses),
				)
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(svc.Rules); err != nil {
				return fmt.Errorf("encode rulebook: %w", err)
			}
			return enc.Close()
		}),
	}
	cmd.Flags().BoolVar(&check, "check", false, "Only validate the rulebook and print a summary")
	return cmd
}

func newMCPCommand(services servicesFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the classification tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: withServices(services, func(cmd *cobra.Command, _ []string, svc *Services) error {
			if svc.ServeMCP == nil {
				return errors.New("mcp server is not available")
			}
			return svc.ServeMCP(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		}),
	}
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writeAnalysisText(w io.Writer, a domain.DocumentAnalysis) {
	if !a.IsLegalDocument {
		fmt.Fprintf(w, "Not a legal document (confidence %.0f%%)\n", a.Confidence)
		fmt.Fprintln(w, a.Summary.Overview)
		return
	}
	fmt.Fprintf(w, "%s (confidence %.0f%%)\n", a.DocumentType, a.Confidence)
	fmt.Fprintf(w, "Overall risk: %s\n", a.Summary.RiskLevel)
	fmt.Fprintf(w, "Clauses: %d high, %d medium, %d low\n", a.RiskSummary.High, a.RiskSummary.Medium, a.RiskSummary.Low)
	for _, c := range a.Clauses {
		fmt.Fprintf(w, "  [%s] %s: %s\n", c.RiskLevel, c.Title, c.PlainEnglish)
	}
}
