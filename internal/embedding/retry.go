package embedding

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/chunkd/internal/models"
)

// RetryPolicy bounds the retries of transient provider failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	// RequestsPerSecond limits outgoing calls; zero disables limiting.
	RequestsPerSecond float64
}

// Retrying paces calls to the wrapped embedder and retries models.ErrTransient failures with
// exponential backoff. Every other error is returned on first occurrence.
type Retrying struct {
	Embedder
	policy  RetryPolicy
	limiter *rate.Limiter
	logger  *zap.Logger
	sleep   func(context.Context, time.Duration) error
}

// NewRetrying wraps e with the given policy.
func NewRetrying(e Embedder, policy RetryPolicy, logger *zap.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrying{Embedder: e, policy: policy, logger: logger, sleep: sleepCtx}
	if policy.RequestsPerSecond > 0 {
		burst := int(policy.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(policy.RequestsPerSecond), burst)
	}
	return r
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.do(ctx, "embed", func() error {
		var err error
		vec, err = r.Embedder.Embed(ctx, text)
		return err
	})
	return vec, err
}

func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.do(ctx, "embed_batch", func() error {
		var err error
		vecs, err = r.Embedder.EmbedBatch(ctx, texts)
		return err
	})
	return vecs, err
}

func (r *Retrying) do(ctx context.Context, op string, call func() error) error {
	backoff := r.policy.InitialBackoff
	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if r.limiter != nil {
			if werr := r.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		err = call()
		if err == nil || !errors.Is(err, models.ErrTransient) {
			return err
		}
		if attempt == r.policy.MaxAttempts {
			break
		}
		r.logger.Debug("Retrying embedding call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		if serr := r.sleep(ctx, backoff); serr != nil {
			return serr
		}
		backoff *= 2
	}
	r.logger.Warn("Embedding call failed after retries",
		zap.String("op", op),
		zap.Int("attempts", r.policy.MaxAttempts),
		zap.Error(err))
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
