// Package pipeline runs one discovery pass: registry fetch per NAF code,
// SIREN dedup, pre-filters, website resolution, site scan and scoring, then
// hands the ranked rows to a sink.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/export"
	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/resolve"
	"github.com/sells-group/esn-finder/internal/scan"
	"github.com/sells-group/esn-finder/internal/scoring"
	"github.com/sells-group/esn-finder/internal/sizeband"
)

// ErrStrictExhausted is returned when INSEE-only mode finds no data for a
// configured NAF code. Nothing is written in that case.
var ErrStrictExhausted = eris.New("pipeline: no registry data in strict INSEE mode")

// Registry fetches establishments for one NAF code, reporting the name of
// the source that answered. *registry.Chain satisfies it.
type Registry interface {
	Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, string, error)
}

// WebsiteLookup returns the website an enterprise declared, if any.
type WebsiteLookup interface {
	EnterpriseWebsite(ctx context.Context, siren string) (string, error)
}

// Resolver finds a fetchable homepage for a company.
type Resolver interface {
	Resolve(ctx context.Context, q resolve.Query) (*resolve.Resolution, error)
}

// Scanner collects the analysis text of a site.
type Scanner interface {
	Scan(ctx context.Context, domain, homepageHTML string) (scan.Result, error)
}

// Scorer turns an establishment plus site evidence into a candidate row.
type Scorer interface {
	Score(in scoring.Input) model.Candidate
}

// Sink receives the ranked rows and the qualifying subset.
type Sink interface {
	Write(ctx context.Context, ranked, relevant []model.Candidate) error
}

// RunRecorder persists run metadata and results. Optional.
type RunRecorder interface {
	CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error)
	FinishRun(ctx context.Context, id string, status model.RunStatus, stats *model.RunStats) error
	SaveCandidates(ctx context.Context, runID string, cands []model.Candidate) error
}

// Options are the run parameters.
type Options struct {
	NAFCodes     []string
	MinEmployees int
	MaxEmployees int
	PageSize     int
	MaxPages     int
	// Sleep is the pause between processed entities.
	Sleep time.Duration
	// ExcludeOver drops establishments whose band exceeds it; negative disables.
	ExcludeOver int
	IncludeZero bool
	NoWebScan   bool
	// StrictInsee makes an empty fetch fatal.
	StrictInsee    bool
	OutputPath     string
	RelevantOutput string
}

// Deps groups the collaborators of a Pipeline. Lookup, Resolver, Scanner
// and Store may be nil.
type Deps struct {
	Registry Registry
	Lookup   WebsiteLookup
	Resolver Resolver
	Scanner  Scanner
	Scorer   Scorer
	Sink     Sink
	Store    RunRecorder
}

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	Candidates []model.Candidate
	Relevant   []model.Candidate
	Stats      *model.RunStats
}

// Pipeline orchestrates a discovery run.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a new Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	return &Pipeline{deps: deps, opts: opts}
}

// Run executes the full pipeline. A strict-mode exhaustion aborts before any
// entity is scored and returns ErrStrictExhausted. Per-entity failures are
// logged and the entity skipped.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.Strings("naf_codes", p.opts.NAFCodes))
	log.Info("pipeline: starting run")

	stats := &model.RunStats{SourceByCode: make(map[string]string)}
	result := &Result{Stats: stats}

	runID := p.createRun(ctx, log)
	result.RunID = runID

	fail := func(err error) (*Result, error) {
		stats.Error = err.Error()
		p.finishRun(ctx, log, runID, model.RunStatusFailed, stats)
		return result, err
	}

	start := time.Now()
	raw, err := p.fetchAll(ctx, stats)
	if err != nil {
		return fail(err)
	}
	log.Info("pipeline: phase complete",
		zap.String("phase", "fetch"),
		zap.Int("records", len(raw)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	unique := Dedup(raw)
	stats.RawRecords = len(raw)
	stats.UniqueSIREN = len(unique)

	start = time.Now()
	cands, err := p.scoreAll(ctx, unique, stats)
	if err != nil {
		return fail(err)
	}
	log.Info("pipeline: phase complete",
		zap.String("phase", "score"),
		zap.Int("candidates", len(cands)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	Rank(cands)
	relevant := model.FilterQualifying(cands)
	stats.Processed = len(cands)
	stats.Qualifying = len(relevant)
	result.Candidates = cands
	result.Relevant = relevant

	if p.deps.Store != nil && runID != "" {
		if saveErr := p.deps.Store.SaveCandidates(ctx, runID, cands); saveErr != nil {
			log.Warn("pipeline: failed to save candidates", zap.Error(saveErr))
		}
	}

	if p.deps.Sink != nil {
		if sinkErr := p.deps.Sink.Write(ctx, cands, relevant); sinkErr != nil {
			if !export.IsPartial(sinkErr) {
				return fail(eris.Wrap(sinkErr, "pipeline: write output"))
			}
			// The ranked rows are on disk; the run still counts as complete.
			stats.Error = sinkErr.Error()
			p.finishRun(ctx, log, runID, model.RunStatusComplete, stats)
			return result, eris.Wrap(sinkErr, "pipeline: write output")
		}
	}

	p.finishRun(ctx, log, runID, model.RunStatusComplete, stats)
	log.Info("pipeline: run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("qualifying", stats.Qualifying),
		zap.Int("failed", stats.Failed),
	)
	return result, nil
}

// fetchAll queries the registry for every configured code.
func (p *Pipeline) fetchAll(ctx context.Context, stats *model.RunStats) ([]model.RawEstablishment, error) {
	var all []model.RawEstablishment
	for _, code := range p.opts.NAFCodes {
		log := zap.L().With(zap.String("naf", code))
		recs, source, err := p.deps.Registry.Fetch(ctx, code, p.opts.PageSize, p.opts.MaxPages)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: fetch naf %s", code)
		}
		if len(recs) == 0 {
			if p.opts.StrictInsee {
				log.Error("pipeline: no INSEE data in strict mode")
				return nil, eris.Wrapf(ErrStrictExhausted, "naf %s", code)
			}
			log.Warn("pipeline: no registry data, continuing")
			continue
		}
		stats.SourceByCode[code] = source
		log.Info("pipeline: fetched establishments", zap.String("source", source), zap.Int("records", len(recs)))
		all = append(all, recs...)
	}
	return all, nil
}

// scoreAll walks the deduplicated establishments in order. Only
// cancellation stops the walk.
func (p *Pipeline) scoreAll(ctx context.Context, unique []model.RawEstablishment, stats *model.RunStats) ([]model.Candidate, error) {
	th := fetcher.NewThrottle(p.opts.Sleep)
	cands := make([]model.Candidate, 0, len(unique))
	processed := 0

	for i, e := range unique {
		log := zap.L().With(zap.String("siren", e.SIREN))

		if !p.opts.IncludeZero && sizeband.IndicatesZero(e.SizeBand) {
			log.Debug("pipeline: skipped zero-employee establishment", zap.String("size_band", e.SizeBand))
			stats.SkippedZero++
			continue
		}
		if p.opts.ExcludeOver >= 0 && sizeband.AboveThreshold(e.SizeBand, p.opts.ExcludeOver) {
			log.Debug("pipeline: skipped oversize establishment", zap.String("size_band", e.SizeBand))
			stats.SkippedOversize++
			continue
		}

		if processed > 0 {
			if err := th.Wait(ctx); err != nil {
				return cands, eris.Wrap(err, "pipeline: throttle")
			}
		}
		processed++

		log.Info(fmt.Sprintf("pipeline: processing [%d/%d]", i+1, len(unique)), zap.String("name", e.Name))
		cand, err := p.processEntity(ctx, e)
		if err != nil {
			if ctx.Err() != nil {
				return cands, eris.Wrap(ctx.Err(), "pipeline: cancelled")
			}
			log.Warn("pipeline: entity failed", zap.Error(err))
			stats.Failed++
			continue
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

// processEntity resolves, scans and scores one establishment. Panics in
// collaborators are turned into errors.
func (p *Pipeline) processEntity(ctx context.Context, e model.RawEstablishment) (cand model.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: panic processing %s: %v", e.SIREN, r)
		}
	}()

	in := scoring.Input{Establishment: e}
	if !p.opts.NoWebScan && p.deps.Resolver != nil {
		declared := e.Website
		if declared == "" && p.deps.Lookup != nil {
			declared, err = p.deps.Lookup.EnterpriseWebsite(ctx, e.SIREN)
			if err != nil {
				return model.Candidate{}, eris.Wrap(err, "pipeline: website lookup")
			}
		}

		res, resErr := p.deps.Resolver.Resolve(ctx, resolve.Query{
			SIREN:           e.SIREN,
			Name:            e.SearchName(),
			NAF:             e.NAF,
			DeclaredWebsite: declared,
		})
		if resErr != nil {
			return model.Candidate{}, eris.Wrap(resErr, "pipeline: resolve")
		}
		if res != nil {
			in.Domain = res.Domain
			in.DomainSource = res.Source
			if p.deps.Scanner != nil {
				sr, scanErr := p.deps.Scanner.Scan(ctx, res.Domain, res.HTML)
				if scanErr != nil {
					return model.Candidate{}, eris.Wrap(scanErr, "pipeline: scan")
				}
				in.SiteText = sr.Text
			}
		}
	}

	return p.deps.Scorer.Score(in), nil
}

func (p *Pipeline) createRun(ctx context.Context, log *zap.Logger) string {
	if p.deps.Store == nil {
		return ""
	}
	run, err := p.deps.Store.CreateRun(ctx, model.RunParams{
		NAFCodes:       p.opts.NAFCodes,
		MinEmployees:   p.opts.MinEmployees,
		MaxEmployees:   p.opts.MaxEmployees,
		ExcludeOver:    p.opts.ExcludeOver,
		PageSize:       p.opts.PageSize,
		MaxPages:       p.opts.MaxPages,
		WebScan:        !p.opts.NoWebScan,
		StrictInsee:    p.opts.StrictInsee,
		IncludeZero:    p.opts.IncludeZero,
		OutputPath:     p.opts.OutputPath,
		RelevantOutput: p.opts.RelevantOutput,
	})
	if err != nil {
		log.Warn("pipeline: failed to create run", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *Pipeline) finishRun(ctx context.Context, log *zap.Logger, runID string, status model.RunStatus, stats *model.RunStats) {
	if p.deps.Store == nil || runID == "" {
		return
	}
	if err := p.deps.Store.FinishRun(context.WithoutCancel(ctx), runID, status, stats); err != nil {
		log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// Rank sorts candidates by score, highest first, keeping input order among
// equal scores.
func Rank(cands []model.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Score > cands[j].Score
	})
}
