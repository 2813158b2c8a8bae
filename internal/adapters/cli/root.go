// Package cli is the lexora command line: one-shot classification and chat
// against the local rulebook, plus the MCP stdio server.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/core/ports"
	"github.com/lexora-app/lexora/internal/core/rules"
	"github.com/lexora-app/lexora/internal/observability/logging"
)

var Version = "dev"

const (
	outputJSON = "json"
	outputText = "text"
)

// Services is what the commands need; Build produces it once flags are parsed.
type Services struct {
	Analyzer ports.DocumentAnalyzer
	Chat     ports.ChatService
	Rules    *rules.Rulebook
	ServeMCP func(ctx context.Context, stdin io.Reader, stdout io.Writer) error
	Close    func()
}

type Builder func(cfg config.Config, logger *slog.Logger) (*Services, error)

type options struct {
	rulesPath string
	output    string
	logLevel  string
}

func NewRootCommand(build Builder) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "lexora",
		Version:       Version,
		Short:         "Classify legal documents and explain their clauses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", os.Getenv("RULES_PATH"), "Rulebook YAML override (default: embedded rulebook)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "Output format (text, json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	services := func(cmd *cobra.Command) (*Services, error) {
		if opts.output != outputText && opts.output != outputJSON {
			return nil, fmt.Errorf("unsupported output format %q", opts.output)
		}
		cfg := config.Config{
			RulesPath:        opts.rulesPath,
			SessionBackend:   config.SessionBackendMemory,
			ChatHistoryLimit: 50,
		}
		// stdout may carry protocol frames, so logs always go to stderr.
		logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "lexora-cli", opts.logLevel)
		return build(cfg, logger)
	}

	root.AddCommand(
		newClassifyCommand(opts, services),
		newAskCommand(opts, services),
		newQuestionsCommand(opts, services),
		newRulesCommand(services),
		newMCPCommand(services),
	)
	return root
}

func Execute(ctx context.Context, build Builder) error {
	root := NewRootCommand(build)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
