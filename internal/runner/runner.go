package runner

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"gmark/internal/config"
	"gmark/internal/db"
	"gmark/internal/generator"
	"gmark/internal/query"
	"gmark/internal/report"
	"gmark/internal/schema"
	"gmark/internal/schemagraph"
	"gmark/internal/sqlgen"
	"gmark/internal/uploader"
	"gmark/internal/util"
	"gmark/internal/validator"
)

// Runner orchestrates generation, compilation, verification and reporting.
type Runner struct {
	cfg       config.Config
	schema    *schema.Schema
	graph     *schemagraph.Graph
	workloads []generator.Workload
	compiler  *sqlgen.Compiler
	reporter  *report.Reporter
	uploader  uploader.Uploader

	generated atomic.Int64
	compiled  atomic.Int64
}

// Result is the outcome of one workload.
type Result struct {
	Workload generator.Workload
	Set      *query.QuerySet
	SQL      []string
	Summary  report.Summary
	Err      error
}

// New resolves the schema and workloads of cfg and derives the schema graph.
func New(cfg config.Config) (*Runner, error) {
	s, err := cfg.BuildSchema()
	if err != nil {
		return nil, err
	}
	workloads, err := cfg.BuildWorkloads()
	if err != nil {
		return nil, err
	}
	if len(workloads) == 0 {
		return nil, errors.Wrap(config.ErrInvalid, "no workloads configured")
	}
	g := schemagraph.Build(s)
	return &Runner{
		cfg:       cfg,
		schema:    s,
		graph:     g,
		workloads: workloads,
		compiler:  sqlgen.New(cfg.Output.SQL.Options()),
		reporter:  report.New(cfg.Output.Dir),
		uploader:  uploader.NoopUploader{},
	}, nil
}

// Graph returns the pruned schema graph shared by every workload.
func (r *Runner) Graph() *schemagraph.Graph {
	return r.graph
}

// SetUploader replaces the uploader used after a run.
func (r *Runner) SetUploader(u uploader.Uploader) {
	if u == nil {
		u = uploader.NoopUploader{}
	}
	r.uploader = u
}

// Run generates every workload, writes the artifacts and publishes the run
// directory. Workloads are generated concurrently, each from its own seed, so
// the output does not depend on scheduling. A failing workload does not stop
// the others; the first failure is returned after everything is written.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	stop := r.startStatsLogger()
	defer stop()

	util.Infof("runner start seed=%d workloads=%d graph_nodes=%d", r.cfg.Seed, len(r.workloads), r.graph.NumNodes())
	run, err := r.reporter.NewRun()
	if err != nil {
		return nil, errors.Wrap(err, "create run directory")
	}
	explainer, closeDB, err := r.openExplainer(ctx)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	results := make([]Result, len(r.workloads))
	var wg sync.WaitGroup
	for i, w := range r.workloads {
		wg.Add(1)
		go func(i int, w generator.Workload) {
			defer wg.Done()
			results[i] = r.generate(w)
		}(i, w)
	}
	wg.Wait()

	var firstErr error
	for i := range results {
		res := &results[i]
		if res.Err == nil && explainer != nil {
			r.explain(ctx, explainer, res)
		}
		if err := r.write(run, res); err != nil && res.Err == nil {
			res.Err = err
		}
		if res.Err != nil {
			util.Errorf("workload %s failed: %v", res.Workload.Name, res.Err)
			if firstErr == nil {
				firstErr = errors.Wrapf(res.Err, "workload %s", res.Workload.Name)
			}
			continue
		}
		util.Highlightf("workload %s\n%s", res.Workload.Name, report.FormatStats(res.Set.Name, res.Summary.Stats, res.Summary.Coverage))
	}

	if r.cfg.Output.Archive {
		if name, codec, err := r.reporter.WriteArchive(run); err != nil {
			util.Warnf("archive run %s: %v", run.ID, err)
		} else {
			util.Infof("archived run %s as %s (%s)", run.ID, name, codec)
		}
	}
	if r.uploader.Enabled() {
		loc, err := r.uploader.UploadDir(ctx, run.Dir)
		if err != nil {
			util.Warnf("upload run %s: %v", run.ID, err)
		} else {
			util.Infof("uploaded run %s to %s", run.ID, loc)
		}
	}
	util.Infof("runner done dir=%s queries=%d", run.Dir, r.generated.Load())
	return results, firstErr
}

// generate draws, compiles and parses one workload. It touches no shared
// mutable state besides atomic counters.
func (r *Runner) generate(w generator.Workload) Result {
	start := time.Now()
	res := Result{Workload: w}
	seed := r.cfg.Seed + int64(w.ID)
	gen, err := generator.New(w, r.schema, r.graph, seed)
	if err != nil {
		res.Err = err
		return res
	}
	progress := func(done, total int) {
		util.Infof("workload %s: %d/%d queries (%d%%)", w.Name, done, total, done*100/max(total, 1))
	}
	set, err := gen.GenerateWorkload(progress)
	res.Set = set
	res.Err = err
	r.generated.Add(int64(set.Len()))

	v := validator.New()
	res.SQL = make([]string, 0, set.Len())
	for _, q := range set.Queries {
		stmt := r.compiler.Query(q)
		res.SQL = append(res.SQL, stmt)
		r.compiled.Add(1)
		if !r.cfg.Verify.Parse {
			continue
		}
		if err := v.Validate(stmt); err != nil && res.Err == nil {
			res.Err = errors.Wrapf(err, "query %d", q.ID)
		}
	}
	parsed, failed := v.Stats()
	res.Summary = report.Summary{
		Workload:  set.Name,
		Language:  w.Language.String(),
		Seed:      gen.Seed,
		Requested: w.Size,
		Generated: set.Len(),
		Config:    gen.Workload,
		Stats:     set.Stats(),
		Builder:   gen.BuilderStats(),
		Coverage:  set.Coverage(r.schema),
		Verification: report.Verification{
			Parsed:      parsed,
			ParseFailed: failed,
		},
		ElapsedMs: time.Since(start).Milliseconds(),
		RunInfo:   r.cfg.RunInfo,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if res.Err != nil {
		res.Summary.Error = res.Err.Error()
	}
	return res
}

func (r *Runner) write(run report.Run, res *Result) error {
	if res.Set == nil {
		res.Set = &query.QuerySet{Name: res.Workload.Name}
		res.Summary.Workload = res.Workload.Name
		res.Summary.Requested = res.Workload.Size
		if res.Err != nil {
			res.Summary.Error = res.Err.Error()
		}
	}
	if err := r.reporter.WriteQueries(run, res.Set, res.SQL); err != nil {
		return errors.Wrap(err, "write queries")
	}
	if err := r.reporter.WriteSummary(run, res.Summary); err != nil {
		return errors.Wrap(err, "write summary")
	}
	return nil
}

// openExplainer connects to the verification server when explain checks are
// enabled. The returned close function is always safe to call.
func (r *Runner) openExplainer(ctx context.Context) (*db.Explainer, func(), error) {
	noop := func() {}
	if !r.cfg.Verify.Explain {
		return nil, noop, nil
	}
	if err := db.EnsureDatabase(ctx, r.cfg.Verify.DSN); err != nil {
		return nil, noop, errors.Wrap(err, "ensure database")
	}
	conn, err := db.Open(r.cfg.Verify.DSN)
	if err != nil {
		return nil, noop, err
	}
	closeDB := func() { util.CloseWithErr(conn, "verify db") }
	timeout := time.Duration(r.cfg.Verify.StatementTimeoutMs) * time.Millisecond
	explainer, err := db.NewExplainer(ctx, conn, r.cfg.Output.SQL.Options(), timeout)
	if err != nil {
		closeDB()
		return nil, noop, err
	}
	return explainer, closeDB, nil
}

type planner interface {
	Explain(ctx context.Context, stmt string) (int, error)
}

func (r *Runner) explain(ctx context.Context, p planner, res *Result) {
	for i, stmt := range res.SQL {
		res.Summary.Verification.Explained++
		if _, err := p.Explain(ctx, stmt); err != nil {
			res.Summary.Verification.ExplainFailed++
			if code, ok := db.ErrorCode(err); ok {
				util.Warnf("explain workload=%s query=%d code=%d err=%v", res.Workload.Name, i, code, err)
			} else if errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.Canceled) {
				util.Warnf("explain aborted workload=%s: %v", res.Workload.Name, err)
				return
			} else {
				util.Warnf("explain workload=%s query=%d err=%v", res.Workload.Name, i, err)
			}
			util.Detailf("explain failed sql=%s", stmt)
		}
	}
}

func (r *Runner) startStatsLogger() func() {
	interval := time.Duration(r.cfg.Logging.ReportIntervalSeconds) * time.Second
	if interval <= 0 {
		return func() {}
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		var lastGenerated, lastCompiled int64
		for {
			select {
			case <-ticker.C:
				generated := r.generated.Load()
				compiled := r.compiled.Load()
				util.Infof("stats generated=%d (+%d) compiled=%d (+%d)",
					generated, generated-lastGenerated, compiled, compiled-lastCompiled)
				lastGenerated, lastCompiled = generated, compiled
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
