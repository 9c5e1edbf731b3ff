package resume

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestClean(t *testing.T) {
	in := "  Jane   Doe \r\n\n\n Go\tengineer\x00\x07 \n\n  Sydney  "
	want := "Jane Doe\nGo engineer\nSydney"
	if got := Clean(in); got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestExtract_Text(t *testing.T) {
	path := writeFile(t, "resume.md", "# Jane Doe\n\n\nGo,  Kafka,   Postgres\n")
	e := NewExtractor(discardLogger())

	got := e.Extract(context.Background(), path)
	if got != "# Jane Doe\nGo, Kafka, Postgres" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestExtract_FailuresYieldEmpty(t *testing.T) {
	e := NewExtractor(discardLogger())
	e.pdftotext = "jobmatch-no-such-pdftotext"

	tests := map[string]string{
		"missing":     filepath.Join(t.TempDir(), "nope.pdf"),
		"unsupported": writeFile(t, "resume.docx", "binary"),
		"bad pdf":     writeFile(t, "resume.pdf", "not really a pdf"),
		"empty path":  "",
	}
	for name, path := range tests {
		if got := e.Extract(context.Background(), path); got != "" {
			t.Errorf("%s: expected empty text, got %q", name, got)
		}
	}
}
