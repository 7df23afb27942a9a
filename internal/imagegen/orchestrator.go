package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"thumbgen/internal/infra"
)

// Options configures an Orchestrator. Providers are tried in slice order.
type Options struct {
	Providers   []Provider
	Retry       RetryPolicy
	SlotStagger time.Duration
	Logger      *infra.Logger
	// Sleep waits for d unless ctx ends first. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration)
}

// Orchestrator fans a prompt out to several concurrent slots, each walking
// the provider chain until one yields images.
type Orchestrator struct {
	providers []Provider
	retry     RetryPolicy
	stagger   time.Duration
	logger    *infra.Logger
	sleep     func(ctx context.Context, d time.Duration)
}

// ProviderStatus is the readiness view of one provider.
type ProviderStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Modes      []Mode `json:"modes"`
}

func New(opts Options) *Orchestrator {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	return &Orchestrator{
		providers: opts.Providers,
		retry:     retry,
		stagger:   opts.SlotStagger,
		logger:    infra.LoggerOrDiscard(opts.Logger),
		sleep:     sleep,
	}
}

// Chain returns the configured providers able to serve mode, in priority order.
func (o *Orchestrator) Chain(mode Mode) []Provider {
	return lo.Filter(o.providers, func(p Provider, _ int) bool {
		return p.Configured() && p.Supports(mode)
	})
}

// Ready reports whether at least one provider can serve mode.
func (o *Orchestrator) Ready(mode Mode) bool {
	return len(o.Chain(mode)) > 0
}

// Providers describes every registered provider.
func (o *Orchestrator) Providers() []ProviderStatus {
	return lo.Map(o.providers, func(p Provider, _ int) ProviderStatus {
		return ProviderStatus{
			Name:       p.Name(),
			Configured: p.Configured(),
			Modes: lo.Filter([]Mode{ModeTextToImage, ModeImageToImage}, func(m Mode, _ int) bool {
				return p.Supports(m)
			}),
		}
	})
}

// Generate produces up to count images for prompt. A non-empty reference
// switches to image-to-image. Slot failures only shrink the result; the
// returned error is non-nil solely when no provider is configured for the mode.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, count int, reference []byte) ([][]byte, error) {
	count = clamp(count)
	mode := ModeTextToImage
	var ref *Reference
	if len(reference) > 0 {
		mode = ModeImageToImage
		ref = &Reference{Data: reference, MIMEType: DetectMIME(reference)}
	}

	chain := o.Chain(mode)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNotConfigured, mode)
	}

	logger := o.loggerFor(ctx).With().Str("mode", string(mode)).Int("count", count).Logger()
	logger.Info().
		Strs("providers", lo.Map(chain, func(p Provider, _ int) string { return p.Name() })).
		Msg("imagegen: generation started")

	// Launched slots outlive a cancelled caller.
	slotCtx := context.WithoutCancel(ctx)
	results := make(chan [][]byte, count)
	var g errgroup.Group
	for slot := 1; slot <= count; slot++ {
		req := Request{Mode: mode, Prompt: prompt, Slot: slot, Reference: ref}
		g.Go(func() error {
			results <- o.runSlot(slotCtx, chain, req, &logger)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	images := make([][]byte, 0, count)
	for batch := range results {
		images = append(images, batch...)
	}
	if len(images) > count {
		images = images[:count]
	}
	logger.Info().Int("images", len(images)).Msg("imagegen: generation finished")
	return images, nil
}

func (o *Orchestrator) runSlot(ctx context.Context, chain []Provider, req Request, parent *zerolog.Logger) (images [][]byte) {
	logger := parent.With().Int("slot", req.Slot).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("imagegen: slot panicked")
			images = nil
		}
	}()

	if req.Mode == ModeImageToImage && req.Slot > 1 && o.stagger > 0 {
		o.sleep(ctx, time.Duration(req.Slot-1)*o.stagger)
	}

	for _, p := range chain {
		out, err := o.callProvider(ctx, p, req, &logger)
		if err != nil {
			logger.Warn().Err(err).Str("provider", p.Name()).Msg("imagegen: provider failed")
			continue
		}
		if len(out) == 0 {
			logger.Warn().Str("provider", p.Name()).Msg("imagegen: provider returned no images")
			continue
		}
		logger.Debug().Str("provider", p.Name()).Int("images", len(out)).Msg("imagegen: slot succeeded")
		return out
	}
	logger.Warn().Msg("imagegen: slot produced no images")
	return nil
}

func (o *Orchestrator) callProvider(ctx context.Context, p Provider, req Request, logger *zerolog.Logger) ([][]byte, error) {
	attempts := o.retry.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.Info().Str("provider", p.Name()).Int("attempt", attempt).Dur("backoff", o.retry.Backoff).Msg("imagegen: retrying after rate limit")
			o.sleep(ctx, o.retry.Backoff)
		}
		resp, err := p.Generate(ctx, req)
		if err == nil {
			return Normalize(resp, logger), nil
		}
		lastErr = err
		if !o.retry.retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return o.logger
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
