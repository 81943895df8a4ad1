package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"gmark/internal/generator"
	"gmark/internal/query"
	"gmark/internal/query/syntax"
	"gmark/internal/report"
	"gmark/internal/runinfo"
	"gmark/internal/schema"
	"gmark/internal/sqlgen"
)

// ErrInvalid reports a configuration that cannot drive a run.
var ErrInvalid = errors.New("invalid config")

// invalidError tags a cause with ErrInvalid and keeps the cause reachable
// through errors.Is and errors.As.
type invalidError struct {
	cause error
}

func (e *invalidError) Error() string        { return ErrInvalid.Error() + ": " + e.cause.Error() }
func (e *invalidError) Unwrap() error        { return e.cause }
func (e *invalidError) Is(target error) bool { return target == ErrInvalid }

func invalidf(cause error, format string, args ...any) error {
	return &invalidError{cause: errors.WithMessagef(cause, format, args...)}
}

// Config captures all runtime options for a workload generation run.
type Config struct {
	Seed      int64              `yaml:"seed"`
	Schema    SchemaConfig       `yaml:"schema"`
	Workloads []WorkloadConfig   `yaml:"workloads"`
	Output    OutputConfig       `yaml:"output"`
	Storage   StorageConfig      `yaml:"storage"`
	Verify    VerifyConfig       `yaml:"verify"`
	Logging   Logging            `yaml:"logging"`
	RunInfo   *runinfo.BasicInfo `yaml:"-"`
}

// SchemaConfig describes the graph domain by alias.
type SchemaConfig struct {
	Types      []TypeConfig      `yaml:"types"`
	Predicates []PredicateConfig `yaml:"predicates"`
	Edges      []EdgeConfig      `yaml:"edges"`
}

// TypeConfig declares a node type. Fixed types need a positive count.
type TypeConfig struct {
	Alias    string `yaml:"alias"`
	Scalable bool   `yaml:"scalable"`
	Count    int    `yaml:"count"`
}

// PredicateConfig declares an edge label.
type PredicateConfig struct {
	Alias      string  `yaml:"alias"`
	Proportion float64 `yaml:"proportion"`
}

// EdgeConfig connects two types through a predicate.
type EdgeConfig struct {
	Source    string             `yaml:"source"`
	Predicate string             `yaml:"predicate"`
	Target    string             `yaml:"target"`
	In        DistributionConfig `yaml:"in"`
	Out       DistributionConfig `yaml:"out"`
}

// DistributionConfig is a degree distribution.
type DistributionConfig struct {
	Type   string  `yaml:"type"`
	Min    int     `yaml:"min"`
	Max    int     `yaml:"max"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
	Alpha  float64 `yaml:"alpha"`
}

// WorkloadConfig is the YAML form of generator.Workload.
type WorkloadConfig struct {
	Name            string          `yaml:"name"`
	Language        string          `yaml:"language"`
	Size            int             `yaml:"size"`
	Shapes          []string        `yaml:"shapes"`
	Selectivities   []string        `yaml:"selectivities"`
	Conjuncts       generator.Range `yaml:"conjuncts"`
	Arity           generator.Range `yaml:"arity"`
	Length          generator.Range `yaml:"length"`
	Disjuncts       generator.Range `yaml:"disjuncts"`
	StarProbability float64         `yaml:"star_probability"`
	MaxRetries      int             `yaml:"max_retries"`
}

// OutputConfig controls where and how workloads are written.
type OutputConfig struct {
	Dir     string    `yaml:"dir"`
	Archive bool      `yaml:"archive"`
	SQL     SQLConfig `yaml:"sql"`
}

// SQLConfig names the edge relation the compiled SQL reads from.
type SQLConfig struct {
	Table        string `yaml:"table"`
	SourceColumn string `yaml:"source_column"`
	TargetColumn string `yaml:"target_column"`
	LabelColumn  string `yaml:"label_column"`
}

// Options converts the layout into compiler options.
func (s SQLConfig) Options() sqlgen.Options {
	return sqlgen.Options{
		Table:        s.Table,
		SourceColumn: s.SourceColumn,
		TargetColumn: s.TargetColumn,
		LabelColumn:  s.LabelColumn,
	}
}

// VerifyConfig controls checks applied to the compiled SQL.
type VerifyConfig struct {
	Parse              bool   `yaml:"parse"`
	Explain            bool   `yaml:"explain"`
	DSN                string `yaml:"dsn"`
	Database           string `yaml:"database"`
	StatementTimeoutMs int    `yaml:"statement_timeout_ms"`
}

// Logging controls stdout logging behavior.
type Logging struct {
	Verbose               bool   `yaml:"verbose"`
	ReportIntervalSeconds int    `yaml:"report_interval_seconds"`
	LogFile               string `yaml:"log_file"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads (legacy and S3-compatible endpoints).
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	normalizeConfig(&cfg)
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

const (
	workloadSizeDefault       = 100
	statementTimeoutMsDefault = 5000
)

func normalizeConfig(cfg *Config) {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "workloads"
	}
	def := sqlgen.DefaultOptions()
	if cfg.Output.SQL.Table == "" {
		cfg.Output.SQL.Table = def.Table
	}
	if cfg.Output.SQL.SourceColumn == "" {
		cfg.Output.SQL.SourceColumn = def.SourceColumn
	}
	if cfg.Output.SQL.TargetColumn == "" {
		cfg.Output.SQL.TargetColumn = def.TargetColumn
	}
	if cfg.Output.SQL.LabelColumn == "" {
		cfg.Output.SQL.LabelColumn = def.LabelColumn
	}
	for i := range cfg.Workloads {
		w := &cfg.Workloads[i]
		if strings.TrimSpace(w.Name) == "" {
			w.Name = fmt.Sprintf("workload-%d", i)
		}
		if w.Language == "" {
			w.Language = query.LangCPQ.String()
		}
		if w.Size == 0 {
			w.Size = workloadSizeDefault
		}
	}
	if cfg.Verify.StatementTimeoutMs <= 0 {
		cfg.Verify.StatementTimeoutMs = statementTimeoutMsDefault
	}
	if cfg.Verify.Database != "" {
		cfg.Verify.DSN = ensureDatabaseInDSN(cfg.Verify.DSN, cfg.Verify.Database)
	}
}

// Validate checks that the schema resolves and every workload is consistent.
func (c Config) Validate() error {
	if _, err := c.BuildSchema(); err != nil {
		return err
	}
	if len(c.Workloads) == 0 {
		return errors.Wrap(ErrInvalid, "no workloads configured")
	}
	if _, err := c.BuildWorkloads(); err != nil {
		return err
	}
	if c.Verify.Explain && c.Verify.DSN == "" {
		return errors.Wrap(ErrInvalid, "verify.explain needs verify.dsn")
	}
	if c.Storage.S3.Enabled && c.Storage.S3.Bucket == "" {
		return errors.Wrap(ErrInvalid, "storage.s3 is enabled without a bucket")
	}
	if c.Storage.GCS.Enabled && c.Storage.GCS.Bucket == "" {
		return errors.Wrap(ErrInvalid, "storage.gcs is enabled without a bucket")
	}
	return nil
}

// BuildSchema resolves aliases into a schema. Ids follow declaration order.
func (c Config) BuildSchema() (*schema.Schema, error) {
	sc := c.Schema
	if len(sc.Types) == 0 || len(sc.Predicates) == 0 {
		return nil, errors.Wrap(ErrInvalid, "schema needs at least one type and one predicate")
	}
	types := make([]schema.Type, 0, len(sc.Types))
	typeByAlias := make(map[string]schema.Type, len(sc.Types))
	for i, t := range sc.Types {
		alias := strings.TrimSpace(t.Alias)
		if !t.Scalable && t.Count <= 0 {
			return nil, errors.Wrapf(ErrInvalid, "fixed type %q needs a positive count", alias)
		}
		typ := schema.Type{ID: i, Alias: alias, Scalable: t.Scalable, Count: t.Count}
		types = append(types, typ)
		typeByAlias[alias] = typ
	}
	preds := make([]schema.Predicate, 0, len(sc.Predicates))
	predByAlias := make(map[string]schema.Predicate, len(sc.Predicates))
	for i, p := range sc.Predicates {
		if p.Proportion < 0 || p.Proportion > 1 {
			return nil, errors.Wrapf(ErrInvalid, "predicate %q proportion %g outside [0,1]", p.Alias, p.Proportion)
		}
		pred := schema.Predicate{ID: i, Alias: strings.TrimSpace(p.Alias), Proportion: p.Proportion}
		if !syntax.ValidAlias(pred.Alias) {
			return nil, errors.Wrapf(ErrInvalid, "predicate alias %q is not a valid query token", pred.Alias)
		}
		preds = append(preds, pred)
		predByAlias[pred.Alias] = pred
	}
	edges := make([]schema.Edge, 0, len(sc.Edges))
	for i, e := range sc.Edges {
		src, ok := typeByAlias[strings.TrimSpace(e.Source)]
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "edge %d: unknown source type %q", i, e.Source)
		}
		trg, ok := typeByAlias[strings.TrimSpace(e.Target)]
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "edge %d: unknown target type %q", i, e.Target)
		}
		pred, ok := predByAlias[strings.TrimSpace(e.Predicate)]
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "edge %d: unknown predicate %q", i, e.Predicate)
		}
		in, err := e.In.distribution()
		if err != nil {
			return nil, invalidf(err, "edge %d in-degree", i)
		}
		out, err := e.Out.distribution()
		if err != nil {
			return nil, invalidf(err, "edge %d out-degree", i)
		}
		edges = append(edges, schema.Edge{Source: src, Target: trg, Predicate: pred, In: in, Out: out})
	}
	s, err := schema.New(types, preds, edges)
	if err != nil {
		return nil, invalidf(err, "schema")
	}
	return s, nil
}

func (d DistributionConfig) distribution() (schema.Distribution, error) {
	typ, err := schema.ParseDistributionType(d.Type)
	if err != nil {
		return schema.Distribution{}, err
	}
	if d.Min < 0 || d.Max < 0 || (d.Max > 0 && d.Min > d.Max) {
		return schema.Distribution{}, errors.Errorf("bad degree bounds [%d,%d]", d.Min, d.Max)
	}
	return schema.Distribution{
		Type:   typ,
		Min:    d.Min,
		Max:    d.Max,
		Mean:   d.Mean,
		StdDev: d.StdDev,
		Alpha:  d.Alpha,
	}, nil
}

// BuildWorkloads converts, normalizes and validates every configured workload.
// Names must map onto distinct output directories.
func (c Config) BuildWorkloads() ([]generator.Workload, error) {
	out := make([]generator.Workload, 0, len(c.Workloads))
	dirs := make(map[string]string, len(c.Workloads))
	for i, wc := range c.Workloads {
		dir := report.DirName(wc.Name)
		if prev, dup := dirs[dir]; dup {
			return nil, errors.Wrapf(ErrInvalid, "workloads %q and %q both write to %q", prev, wc.Name, dir)
		}
		dirs[dir] = wc.Name
		w, err := wc.workload(i)
		if err != nil {
			return nil, invalidf(err, "workload %q", wc.Name)
		}
		out = append(out, w)
	}
	return out, nil
}

func (wc WorkloadConfig) workload(id int) (generator.Workload, error) {
	lang, err := query.ParseLanguage(wc.Language)
	if err != nil {
		return generator.Workload{}, err
	}
	w := generator.Workload{
		ID:              id,
		Name:            wc.Name,
		Language:        lang,
		Size:            wc.Size,
		Conjuncts:       wc.Conjuncts,
		Arity:           wc.Arity,
		Length:          wc.Length,
		Disjuncts:       wc.Disjuncts,
		StarProbability: wc.StarProbability,
		MaxRetries:      wc.MaxRetries,
	}
	for _, name := range wc.Shapes {
		s, err := query.ParseShape(name)
		if err != nil {
			return generator.Workload{}, err
		}
		w.Shapes = append(w.Shapes, s)
	}
	for _, name := range wc.Selectivities {
		sel, err := schema.ParseSelectivityClass(name)
		if err != nil {
			return generator.Workload{}, err
		}
		w.Selectivities = append(w.Selectivities, sel)
	}
	w.Normalize()
	if err := w.Validate(); err != nil {
		return generator.Workload{}, err
	}
	return w, nil
}

func ensureDatabaseInDSN(dsn string, dbName string) string {
	if dsn == "" || dbName == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	qs := strings.Index(dsn[slash+1:], "?")
	if qs >= 0 {
		qs = slash + 1 + qs
	}
	afterSlash := dsn[slash+1:]
	if qs >= 0 {
		afterSlash = dsn[slash+1 : qs]
	}
	if strings.TrimSpace(afterSlash) != "" {
		return dsn
	}
	if qs >= 0 {
		return dsn[:slash+1] + dbName + dsn[qs:]
	}
	return dsn + dbName
}

// AdminDSN strips the database name from a DSN while preserving qs parameters.
func AdminDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	qs := strings.Index(dsn[slash+1:], "?")
	if qs >= 0 {
		qs = slash + 1 + qs
		return dsn[:slash+1] + dsn[qs:]
	}
	return dsn[:slash+1]
}

func defaultConfig() Config {
	return Config{
		Output: OutputConfig{
			Dir: "workloads",
			SQL: SQLConfig{},
		},
		Verify: VerifyConfig{
			Parse:              true,
			DSN:                "root:@tcp(127.0.0.1:4000)/",
			Database:           "gmark",
			StatementTimeoutMs: statementTimeoutMsDefault,
		},
		Logging: Logging{
			ReportIntervalSeconds: 30,
			LogFile:               "logs/gmark.log",
		},
	}
}
