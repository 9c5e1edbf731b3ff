// Package resume extracts plain text from a resume file.
package resume

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Extractor reads resume files. PDFs go through a pure-Go reader first and
// fall back to the pdftotext command.
type Extractor struct {
	pdftotext string // command name; empty disables the fallback
	logger    *slog.Logger
}

// NewExtractor returns an Extractor that falls back to pdftotext on PATH.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{pdftotext: "pdftotext", logger: logger}
}

// Extract returns the cleaned text of the file at path. Every failure is
// logged and yields "", which downstream scoring treats as no resume.
func (e *Extractor) Extract(ctx context.Context, path string) string {
	if path == "" {
		e.logger.Warn("no resume configured, every job will score 0")
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		e.logger.Warn("resume not readable", "path", path, "error", err)
		return ""
	}

	var text string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".text":
		var b []byte
		b, err = os.ReadFile(path)
		text = string(b)
	case ".pdf":
		text, err = e.pdfText(ctx, path)
	default:
		err = fmt.Errorf("unsupported resume format %q", filepath.Ext(path))
	}
	if err != nil {
		e.logger.Warn("resume extraction failed", "path", path, "error", err)
		return ""
	}

	text = Clean(text)
	if text == "" {
		e.logger.Warn("resume contains no text", "path", path)
	} else {
		e.logger.Info("loaded resume", "path", path, "chars", len(text))
	}
	return text
}

func (e *Extractor) pdfText(ctx context.Context, path string) (string, error) {
	text, err := readPDF(path)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err == nil {
		err = fmt.Errorf("no text layer")
	}
	if e.pdftotext == "" {
		return "", err
	}

	e.logger.Debug("pdf reader failed, trying pdftotext", "error", err)
	out, cmdErr := exec.CommandContext(ctx, e.pdftotext, "-layout", path, "-").Output()
	if cmdErr != nil {
		return "", fmt.Errorf("pdf reader: %v; pdftotext: %w", err, cmdErr)
	}
	return string(out), nil
}

// readPDF extracts text with the pure-Go reader, which panics on some
// malformed files.
func readPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

var (
	newlineRun = regexp.MustCompile(`\n+`)
	spaceRun   = regexp.MustCompile(` +`)
)

// Clean collapses repeated newlines and spaces, drops non-printable
// characters, and trims every line.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n':
			return r
		case r == '\t':
			return ' '
		case unicode.IsPrint(r):
			return r
		default:
			return -1
		}
	}, text)
	text = newlineRun.ReplaceAllString(text, "\n")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
