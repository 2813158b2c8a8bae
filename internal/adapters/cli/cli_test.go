package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexora-app/lexora/internal/bootstrap"
	"github.com/lexora-app/lexora/internal/config"
	"github.com/lexora-app/lexora/internal/core/domain"
)

func localBuilder(cfg config.Config, _ *slog.Logger) (*Services, error) {
	app, err := bootstrap.NewLocal(cfg)
	if err != nil {
		return nil, err
	}
	return &Services{
		Analyzer: app.AnalyzeUC,
		Chat:     app.ChatUC,
		Rules:    app.Rules,
		Close:    app.Close,
	}, nil
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(localBuilder)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyFromStdinJSON(t *testing.T) {
	out, err := run(t, "This rental agreement is a binding contract between the parties.", "classify", "-o", "json")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	var analysis domain.DocumentAnalysis
	if err := json.Unmarshal([]byte(out), &analysis); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !analysis.IsLegalDocument || analysis.DocumentType != "Rental Agreement" {
		t.Fatalf("unexpected analysis: legal=%v type=%q", analysis.IsLegalDocument, analysis.DocumentType)
	}
}

func TestClassifyFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("groceries: milk, eggs, bread"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	out, err := run(t, "", "classify", path)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !strings.Contains(out, "Not a legal document") {
		t.Fatalf("expected non-legal verdict, got %q", out)
	}
}

func TestClassifyRejectsUnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	_, err := run(t, "", "classify", path)
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestAskAndQuestions(t *testing.T) {
	out, err := run(t, "", "ask", "Can", "I", "have", "pets?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "pet") {
		t.Fatalf("expected pet answer, got %q", out)
	}

	out, err = run(t, "", "questions")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if !strings.HasPrefix(out, "- ") {
		t.Fatalf("expected bullet list, got %q", out)
	}
}

func TestRulesCheckAndDump(t *testing.T) {
	out, err := run(t, "", "rules", "--check")
	if err != nil {
		t.Fatalf("rules --check: %v", err)
	}
	if !strings.Contains(out, "rulebook ok: 23 keywords, 10 phrases") {
		t.Fatalf("unexpected summary %q", out)
	}

	out, err = run(t, "", "rules")
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if !strings.Contains(out, "legal_detection:") {
		t.Fatalf("expected yaml dump, got %q", out)
	}
}

func TestUnsupportedOutputFormat(t *testing.T) {
	if _, err := run(t, "", "questions", "-o", "xml"); err == nil {
		t.Fatalf("expected output format error")
	}
}

func TestMCPWithoutServer(t *testing.T) {
	if _, err := run(t, "", "mcp"); err == nil {
		t.Fatalf("expected error when mcp server is not wired")
	}
}
