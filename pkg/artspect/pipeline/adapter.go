package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/artspect/pkg/artspect/dataset"
)

// Invocation carries the fields an adapter may key on: the fetch
// adapter looks up Key, the classification adapter sends Content.
type Invocation struct {
	Key     string
	Content string
}

// OutcomeKind distinguishes the three results the driver cares about,
// plus Failed for adapters that cap their retries.
type OutcomeKind int

const (
	// Success carries a usable value (and possibly an annotation).
	Success OutcomeKind = iota
	// Empty confirms nothing exists for this record.
	Empty
	// Transient is a retry-worthy failure; RetryAfter says how long to wait.
	Transient
	// Failed is a permanent failure after retries were exhausted.
	Failed
)

// Outcome is the uniform adapter result.
type Outcome struct {
	Kind       OutcomeKind
	Value      string
	Annotation *dataset.Annotation
	RetryAfter time.Duration
	Err        error
}

// Adapter wraps one external call behind a uniform request/result contract.
type Adapter interface {
	Invoke(ctx context.Context, in Invocation) Outcome
}

// Retrier retries Transient outcomes from the wrapped adapter after the
// backoff each outcome carries. MaxAttempts of 0 retries forever: the
// pipeline favors eventual progress over failing the whole run.
type Retrier struct {
	Adapter     Adapter
	MaxAttempts int
	Log         *zap.Logger
	Sleep       func(time.Duration) // nil means time.Sleep
}

func (r *Retrier) Invoke(ctx context.Context, in Invocation) Outcome {
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	for attempt := 1; ; attempt++ {
		out := r.Adapter.Invoke(ctx, in)
		if out.Kind != Transient {
			return out
		}
		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			return Outcome{Kind: Failed, Err: fmt.Errorf("gave up after %d attempts: %w", attempt, out.Err)}
		}
		if r.Log != nil {
			r.Log.Warn("transient failure, backing off",
				zap.String("key", in.Key),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", out.RetryAfter),
				zap.Error(out.Err))
		}
		sleep(out.RetryAfter)
	}
}
