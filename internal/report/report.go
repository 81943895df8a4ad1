package report

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"gmark/internal/generator"
	"gmark/internal/query"
	"gmark/internal/runinfo"
	"gmark/internal/util"
)

// Reporter writes workload artifacts to disk.
type Reporter struct {
	OutputDir   string
	UseUUIDPath bool
	runSeq      int
}

// Run describes one output directory holding every workload of a run.
type Run struct {
	ID  string
	Dir string
}

// Artifact file names inside a workload directory.
const (
	QueriesTextName = "queries.txt"
	QueriesSQLName  = "queries.sql"
	QueriesXMLName  = "queries.xml"
	SummaryName     = "summary.json"

	ArchiveName  = "workload.tar.zst"
	ArchiveCodec = "zstd"
)

// Summary captures the persisted metadata for one workload.
type Summary struct {
	Workload     string                 `json:"workload"`
	Language     string                 `json:"language"`
	Seed         int64                  `json:"seed"`
	Requested    int                    `json:"requested"`
	Generated    int                    `json:"generated"`
	Config       generator.Workload     `json:"config"`
	Stats        query.Stats            `json:"stats"`
	Builder      generator.BuilderStats `json:"builder"`
	Coverage     []query.LabelUse       `json:"coverage"`
	Verification Verification           `json:"verification"`
	Error        string                 `json:"error,omitempty"`
	ElapsedMs    int64                  `json:"elapsed_ms"`
	RunInfo      *runinfo.BasicInfo     `json:"run_info,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// Verification counts checks applied to the compiled SQL.
type Verification struct {
	Parsed        int `json:"parsed"`
	ParseFailed   int `json:"parse_failed"`
	Explained     int `json:"explained"`
	ExplainFailed int `json:"explain_failed"`
}

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewRun allocates a new run directory.
func (r *Reporter) NewRun() (Run, error) {
	r.runSeq++
	runID := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		runID = v7.String()
	}
	runDir := fmt.Sprintf("run_%04d_%s", r.runSeq, runID)
	if r.UseUUIDPath {
		runDir = runID
	}
	dir := filepath.Join(r.OutputDir, runDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Run{}, err
	}
	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Query Workloads\n\n- One directory per workload\n- queries.txt: textual queries\n- queries.sql: one SQL statement per query over the edge table\n- queries.xml: structured queries\n- summary.json: statistics and generation metrics\n"), 0o644)
	return Run{ID: runID, Dir: dir}, nil
}

// WorkloadDir returns the directory holding the named workload.
func (run Run) WorkloadDir(name string) string {
	return filepath.Join(run.Dir, DirName(name))
}

// WriteQueries writes the text, SQL and XML forms of set. sql holds one
// compiled statement per query, in order.
func (r *Reporter) WriteQueries(run Run, set *query.QuerySet, sql []string) error {
	if len(sql) != set.Len() {
		return errors.Errorf("workload %s has %d queries but %d statements", set.Name, set.Len(), len(sql))
	}
	dir := run.WorkloadDir(set.Name)
	var text, stmts strings.Builder
	for i, q := range set.Queries {
		fmt.Fprintf(&text, "%s\n", q)
		fmt.Fprintf(&stmts, "-- q%d: %s\n%s;\n\n", q.ID, q, sql[i])
	}
	if err := r.WriteText(dir, QueriesTextName, text.String()); err != nil {
		return err
	}
	if err := r.WriteText(dir, QueriesSQLName, stmts.String()); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, QueriesXMLName))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "xml output")
	return set.WriteXML(f)
}

// WriteSummary writes summary.json into the workload directory.
func (r *Reporter) WriteSummary(run Run, summary Summary) error {
	dir := run.WorkloadDir(summary.Workload)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, SummaryName))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "summary output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(summary)
}

// WriteText writes raw text content into dir.
func (r *Reporter) WriteText(dir string, name string, content string) error {
	path := filepath.Join(dir, name)
	if parent := filepath.Dir(path); parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// WriteArchive creates a compressed archive of the run directory.
func (r *Reporter) WriteArchive(run Run) (name string, codec string, err error) {
	archivePath := filepath.Join(run.Dir, ArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(run.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(run.Dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer util.CloseWithErr(src, "archive source")
		_, err = io.Copy(tw, src)
		return err
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return ArchiveName, ArchiveCodec, nil
}

// DirName maps a workload name onto the directory that holds its artifacts.
func DirName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "workload"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}

// LoadSummaries reads every workload summary below a run directory, ordered
// by workload name.
func LoadSummaries(runDir string) ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(runDir, "*", SummaryName))
	if err != nil {
		return nil, err
	}
	summaries := make([]Summary, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var s Summary
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, errors.Wrapf(err, "decode %s", path)
		}
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Workload < summaries[j].Workload })
	return summaries, nil
}
