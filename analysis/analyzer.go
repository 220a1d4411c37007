// Package analysis orchestrates one screenshot analysis: it resolves the
// configuration, picks a backend strategy, calls it and normalizes the output
// into an asset.AnalysisResult.
package analysis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"assetlens/asset"
	"assetlens/images"
	"assetlens/normalize"
)

// Analyzer runs analyses. It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	credentials CredentialProvider
	httpClient  *http.Client
	logger      zerolog.Logger
	newID       func() string
	now         func() time.Time
	permissive  bool
}

// Option configures the Analyzer
type Option func(*Analyzer)

// WithDefaultCredential sets the key used when a Config carries none
func WithDefaultCredential(p CredentialProvider) Option {
	return func(a *Analyzer) {
		if p != nil {
			a.credentials = p
		}
	}
}

// WithHTTPClient sets the HTTP client shared by every backend call
func WithHTTPClient(client *http.Client) Option {
	return func(a *Analyzer) {
		a.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithIDGenerator replaces the UUID generator
func WithIDGenerator(fn func() string) Option {
	return func(a *Analyzer) {
		a.newID = fn
	}
}

// WithClock replaces time.Now
func WithClock(fn func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = fn
	}
}

// WithPermissiveOutput disables post-parse validation so out-of-range ratios,
// unknown enum values and inconsistent totals are passed through.
func WithPermissiveOutput() Option {
	return func(a *Analyzer) {
		a.permissive = true
	}
}

// New creates an Analyzer. Without WithDefaultCredential every Config must carry its own key.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		credentials: NoCredential,
		logger:      zerolog.Nop(),
		newID:       uuid.NewString,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one analysis over srcs in the given order. It makes at most one
// attempt per backend call and returns a classified *Error on failure.
func (a *Analyzer) Analyze(ctx context.Context, srcs []images.Source, cfg Config) (*asset.AnalysisResult, error) {
	return a.AnalyzeWithProgress(ctx, srcs, cfg, nil)
}

// AnalyzeWithProgress is Analyze with a stage callback. The callback is never
// invoked concurrently with itself.
func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, srcs []images.Source, cfg Config, progress func(ProgressUpdate)) (*asset.AnalysisResult, error) {
	rep := newReporter(progress)
	start := a.now()

	result, err := a.run(ctx, srcs, cfg, rep)
	if err != nil {
		classified := Classify(err)
		ev := a.logger.Error()
		if classified.Kind == KindMalformedOutput {
			ev = a.logger.Warn()
			var nErr *normalize.Error
			if errors.As(err, &nErr) {
				ev = ev.Int("raw_len", len(nErr.Raw))
			}
		}
		ev.Err(err).
			Str("kind", string(classified.Kind)).
			Str("reason", string(classified.Reason)).
			Int("status", classified.StatusCode).
			Msg("analysis failed")

		rep.stage(StageFailed, classified)
		return nil, classified
	}

	a.logger.Info().
		Str("id", result.ID).
		Int("items", len(result.Breakdown)).
		Dur("elapsed", a.now().Sub(start)).
		Msg("analysis complete")

	rep.stage(StageDone, nil)
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, srcs []images.Source, cfg Config, rep *reporter) (*asset.AnalysisResult, error) {
	rep.stage(StagePreparing, nil)

	strat, err := selectStrategy(cfg, a.credentials, a.httpClient, a.logger)
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, invalidConfiguration("at least one image")
	}

	encoded, err := images.EncodeAll(srcs)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("strategy", strat.name()).
		Int("images", len(encoded)).
		Msg("analysis started")

	rep.begin(strat.name(), strat.calls(len(encoded)))
	rep.stage(StageCalling, nil)

	out, err := strat.generate(ctx, encoded, rep)
	if err != nil {
		return nil, err
	}

	rep.stage(StageNormalizing, nil)
	return a.normalize(out)
}

func (a *Analyzer) normalize(out output) (*asset.AnalysisResult, error) {
	var result asset.AnalysisResult

	decode := normalize.Parse
	if out.constrained {
		decode = normalize.Decode
	}
	if err := decode(out.text, &result); err != nil {
		return nil, err
	}

	if result.ID == "" {
		result.ID = a.newID()
	}
	if result.Timestamp == 0 {
		result.Timestamp = a.now().UnixMilli()
	}

	asset.Canonicalize(&result)
	if !a.permissive {
		if err := asset.Validate(&result); err != nil {
			return nil, err
		}
	}

	return &result, nil
}
