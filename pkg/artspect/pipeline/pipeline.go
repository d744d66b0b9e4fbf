// Package pipeline drives resumable, rate-limited enrichment of contract
// records: it decides which records still need external work, throttles
// outbound calls and appends one durable output row per record.
package pipeline

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/artspect/pkg/artspect/dataset"
	"github.com/cognicore/artspect/pkg/artspect/ratelimit"
)

// Options are the short-circuit policies applied before calling out.
// MinCodeLength <= 0 disables the too-short check and DedupeCode false
// disables in-run duplicate detection; the fetch stage has no input
// content, so it turns both off.
type Options struct {
	SkipProcessed bool
	MinCodeLength int
	DedupeCode    bool
}

// Stats counts per-record outcomes for the final summary.
type Stats struct {
	Total      int
	Enriched   int
	Empty      int
	Skipped    int // already in the output of a prior run
	TooShort   int
	Duplicates int
	Failed     int
}

// Sink persists one result row durably per call.
type Sink interface {
	Append(dataset.Result) error
}

// Pipeline is the enrichment driver. It processes records strictly one
// at a time, in input order: no record starts before the previous
// record's row has been durably appended, which is what makes resumption
// see a consistent prefix of completed keys.
type Pipeline struct {
	opts    Options
	limiter *ratelimit.Limiter
	adapter Adapter
	sink    Sink
	log     *zap.Logger
}

func New(opts Options, limiter *ratelimit.Limiter, adapter Adapter, sink Sink, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		opts:    opts,
		limiter: limiter,
		adapter: adapter,
		sink:    sink,
		log:     log.With(zap.String("run", ulid.Make().String())),
	}
}

// Run enriches every record not yet in processed. A single record's
// failure never halts the run; only a persistence error does, since
// correctness depends on durable append.
func (p *Pipeline) Run(ctx context.Context, records []dataset.Record, processed map[string]struct{}) (Stats, error) {
	if processed == nil {
		processed = make(map[string]struct{})
	}
	contentIndex := make(map[string]string)

	stats := Stats{Total: len(records)}
	for _, rec := range records {
		if p.opts.SkipProcessed {
			if _, ok := processed[rec.Address]; ok {
				stats.Skipped++
				continue
			}
		}

		res := dataset.Result{Record: rec}
		switch {
		case p.opts.MinCodeLength > 0 && len(rec.Code) <= p.opts.MinCodeLength:
			res.Skip = dataset.SkipTooShort
			stats.TooShort++
			p.log.Info("code too short, skipping",
				zap.String("address", rec.Address), zap.Int("length", len(rec.Code)))

		case p.opts.DedupeCode && contentIndex[rec.Code] != "":
			res.Skip = dataset.SkipDuplicate
			res.DuplicateOf = contentIndex[rec.Code]
			stats.Duplicates++
			p.log.Info("duplicate code, skipping",
				zap.String("address", rec.Address), zap.String("duplicate_of", res.DuplicateOf))

		default:
			p.limiter.Acquire()
			out := p.adapter.Invoke(ctx, Invocation{Key: rec.Address, Content: rec.Code})
			switch out.Kind {
			case Success:
				res.Code = out.Value
				res.Annotation = out.Annotation
				stats.Enriched++
				p.log.Info("record enriched", zap.String("address", rec.Address))
			case Empty:
				stats.Empty++
				p.log.Info("nothing to enrich", zap.String("address", rec.Address))
			case Failed:
				res.Skip = dataset.SkipFailed
				res.Err = out.Err.Error()
				stats.Failed++
				p.log.Warn("record failed permanently",
					zap.String("address", rec.Address), zap.Error(out.Err))
			}
			if out.Kind != Failed {
				contentIndex[rec.Code] = rec.Address
			}
		}

		if err := p.sink.Append(res); err != nil {
			return stats, fmt.Errorf("append row for %s: %w", rec.Address, err)
		}
		processed[rec.Address] = struct{}{}
	}

	p.log.Info("run complete",
		zap.Int("total", stats.Total),
		zap.Int("enriched", stats.Enriched),
		zap.Int("empty", stats.Empty),
		zap.Int("skipped", stats.Skipped),
		zap.Int("too_short", stats.TooShort),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("failed", stats.Failed))
	return stats, nil
}
