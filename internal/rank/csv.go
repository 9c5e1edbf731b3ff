package rank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/amishk599/jobmatch/internal/model"
)

const defaultFileMode fs.FileMode = 0o644

// Columns is the fixed output layout. Columns found only in an existing file
// are kept after these.
var Columns = []string{
	"job_id", "title", "company", "location", "job_url", "apply", "comments",
	"match_score", "rating", "source", "seniority", "employment_type",
	"match_reason", "description", "skill_matches", "skill_gaps",
	"date_posted", "industries",
}

const listSep = "; "

// MergeResult reports what Merge wrote.
type MergeResult struct {
	Path    string
	Added   []model.Job // rows prepended by this merge
	Skipped int         // jobs already present in the file or repeated in the batch
	Total   int         // rows in the file after the merge
}

// CSVWriter merges ranked jobs into a results file that users annotate by
// hand. Existing rows are never reordered or rewritten.
type CSVWriter struct {
	path string
}

// NewCSVWriter returns a writer for path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{path: path}
}

// Path returns the output file path.
func (w *CSVWriter) Path() string { return w.path }

// Merge prepends jobs not already in the file, keyed by title and company.
// The file is replaced atomically under an exclusive lock.
func (w *CSVWriter) Merge(jobs []model.Job) (MergeResult, error) {
	res := MergeResult{Path: w.path}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("creating output dir: %w", err)
	}

	lock := flock.New(w.path + ".lock")
	if err := lock.Lock(); err != nil {
		return res, fmt.Errorf("locking %s: %w", w.path, err)
	}
	defer lock.Unlock()

	header, existing, err := readRows(w.path)
	if err != nil {
		return res, err
	}

	columns := mergeColumns(header)
	seen := make(map[string]struct{}, len(existing)+len(jobs))
	for _, row := range existing {
		seen[rowKey(row)] = struct{}{}
	}

	var fresh []map[string]string
	for _, j := range jobs {
		row := jobRow(j)
		k := rowKey(row)
		if _, dup := seen[k]; dup {
			res.Skipped++
			continue
		}
		seen[k] = struct{}{}
		fresh = append(fresh, row)
		res.Added = append(res.Added, j)
	}
	res.Total = len(fresh) + len(existing)

	if len(fresh) == 0 && header != nil {
		return res, nil
	}

	tmp, err := os.CreateTemp(dir, ".jobmatch-*.csv")
	if err != nil {
		return res, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	cw := csv.NewWriter(tmp)
	if err := writeRows(cw, columns, fresh, existing); err != nil {
		tmp.Close()
		return res, fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	// CreateTemp opens 0600; keep the replaced file's mode.
	mode := defaultFileMode
	if info, err := os.Stat(w.path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return res, fmt.Errorf("setting mode on %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return res, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return res, fmt.Errorf("replacing %s: %w", w.path, err)
	}
	return res, nil
}

func writeRows(cw *csv.Writer, columns []string, batches ...[]map[string]string) error {
	if err := cw.Write(columns); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for _, rows := range batches {
		for _, row := range rows {
			for i, c := range columns {
				record[i] = row[c]
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// readRows returns the header and rows of path keyed by column name. A
// missing or empty file yields a nil header.
func readRows(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, c := range header {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// mergeColumns returns Columns followed by any extra columns in header.
func mergeColumns(header []string) []string {
	cols := append([]string(nil), Columns...)
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c] = struct{}{}
	}
	for _, c := range header {
		if _, ok := known[c]; ok || c == "" {
			continue
		}
		known[c] = struct{}{}
		cols = append(cols, c)
	}
	return cols
}

func rowKey(row map[string]string) string {
	return strings.ToLower(strings.TrimSpace(row["title"])) + "|" + strings.ToLower(strings.TrimSpace(row["company"]))
}

func jobRow(j model.Job) map[string]string {
	return map[string]string{
		"job_id":          j.ID,
		"title":           j.Title,
		"company":         j.Company,
		"location":        j.Location,
		"job_url":         j.URL,
		"apply":           "",
		"comments":        "",
		"match_score":     strconv.Itoa(j.MatchScore),
		"rating":          strconv.FormatFloat(j.Rating, 'f', -1, 64),
		"source":          string(j.Source),
		"seniority":       j.Seniority,
		"employment_type": j.EmploymentType,
		"match_reason":    j.MatchReason,
		"description":     j.Description,
		"skill_matches":   strings.Join(j.SkillMatches, listSep),
		"skill_gaps":      strings.Join(j.SkillGaps, listSep),
		"date_posted":     j.DatePosted,
		"industries":      j.Industries,
	}
}

// Entry is one row of a results file, with the user's annotation columns.
type Entry struct {
	Job      model.Job
	Apply    string
	Comments string
}

// Load reads a results file written by CSVWriter.
func Load(path string) ([]Entry, error) {
	header, rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if header == nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("opening %s: %w", path, statErr)
		}
		return nil, nil
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		score, _ := strconv.Atoi(row["match_score"])
		rating, _ := strconv.ParseFloat(row["rating"], 64)
		entries = append(entries, Entry{
			Job: model.Job{
				ID:             row["job_id"],
				Title:          row["title"],
				Company:        row["company"],
				Location:       row["location"],
				URL:            row["job_url"],
				MatchScore:     score,
				Rating:         rating,
				Source:         model.Source(row["source"]),
				Seniority:      row["seniority"],
				EmploymentType: row["employment_type"],
				MatchReason:    row["match_reason"],
				Description:    row["description"],
				SkillMatches:   splitList(row["skill_matches"]),
				SkillGaps:      splitList(row["skill_gaps"]),
				DatePosted:     row["date_posted"],
				Industries:     row["industries"],
			},
			Apply:    row["apply"],
			Comments: row["comments"],
		})
	}
	return entries, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
