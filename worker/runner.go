// Package worker drives a text-processing job from extraction to
// completion. One goroutine per job: it batches the extracted links by
// provider, shares one authenticated session per batch, and finalizes
// the job no matter how the run ends.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/jobs"
	"github.com/hxlong2024/LinkChanger/notify"
	"github.com/hxlong2024/LinkChanger/provider"
	"github.com/hxlong2024/LinkChanger/utils"
)

// EngineFactory builds the engine for a provider, or returns nil when
// that provider is not configured.
type EngineFactory func(p internal.Provider) internal.ProviderEngine

// resolvedCacher is implemented by engines that can memoize a resolved
// share, used to avoid re-resolving the inject link across batches.
type resolvedCacher interface {
	CacheResolved(shareURL string, ref *internal.ShareReference)
}

// Runner executes jobs against the configured providers.
type Runner struct {
	cfg       *internal.Config
	manager   *jobs.Manager
	extractor internal.LinkExtractor
	notifier  internal.Notifier
	pacer     internal.Pacer

	// Engines is replaceable in tests.
	Engines EngineFactory
}

// NewRunner wires a runner from configuration. The factory builds a
// fresh engine per provider batch so session state and the inject
// cache never leak across jobs.
func NewRunner(cfg *internal.Config, manager *jobs.Manager) *Runner {
	client := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:  cfg.HTTPTimeout,
		ProxyURL: cfg.ProxyURL,
	})

	return &Runner{
		cfg:       cfg,
		manager:   manager,
		extractor: provider.NewExtractor(),
		notifier:  notify.NewFanout(cfg),
		pacer:     utils.NewRandomPacer(cfg.PaceMin, cfg.PaceMax),
		Engines: func(p internal.Provider) internal.ProviderEngine {
			switch p {
			case internal.ProviderQuark:
				if cfg.Quark.Configured() {
					return provider.NewQuarkEngine(cfg.Quark, client, cfg.PollInterval, cfg.PollAttempts)
				}
			case internal.ProviderBaidu:
				if cfg.Baidu.Configured() {
					return provider.NewBaiduEngine(cfg.Baidu, client)
				}
			}
			return nil
		},
	}
}

// Run processes one job to completion. It is meant to be launched as a
// goroutine; the job is always completed, even on panic, so observers
// polling the manager never hang.
func (r *Runner) Run(ctx context.Context, jobID, text string) {
	start := time.Now()
	resultText := text
	succeeded := 0
	total := 0

	defer func() {
		if rec := recover(); rec != nil {
			internal.LogError("job %s panicked: %v", jobID, rec)
			r.manager.AppendLog(jobID, "error", fmt.Sprintf("internal error: %v", rec))
		}
		summary := internal.Summary{
			Succeeded: succeeded,
			Total:     total,
			Duration:  time.Since(start).Round(time.Millisecond).String(),
		}
		r.manager.Complete(jobID, resultText, summary)
		if r.notifier != nil {
			r.notifier.Notify(ctx, "链接转存完成", fmt.Sprintf("%d/%d 成功", succeeded, total))
		}
	}()

	matches := r.extractor.Extract(text)
	total = len(matches)
	r.manager.SetTotal(jobID, total)

	if total == 0 {
		r.manager.AppendLog(jobID, "info", "no supported links found")
		return
	}
	r.manager.AppendLog(jobID, "info", fmt.Sprintf("found %d link(s)", total))

	var replacements []Replacement
	for _, batch := range batchByProvider(matches) {
		done := r.runBatch(ctx, jobID, batch, &replacements)
		succeeded += done
	}

	resultText = Substitute(text, replacements)
}

// batch groups consecutive work for one provider.
type batch struct {
	provider internal.Provider
	matches  []internal.Match
}

// batchByProvider groups matches by provider, ordered by each
// provider's first appearance in the text.
func batchByProvider(matches []internal.Match) []batch {
	index := make(map[internal.Provider]int)
	var batches []batch
	for _, m := range matches {
		i, ok := index[m.Provider]
		if !ok {
			i = len(batches)
			index[m.Provider] = i
			batches = append(batches, batch{provider: m.Provider})
		}
		batches[i].matches = append(batches[i].matches, m)
	}
	return batches
}

// runBatch authenticates once, prepares the destination once, then
// walks the batch. An auth or destination failure skips the whole
// batch; its links keep their original text. Returns the number of
// successfully republished links and appends their replacements.
func (r *Runner) runBatch(ctx context.Context, jobID string, b batch, replacements *[]Replacement) int {
	logf := func(kind, message string) {
		r.manager.AppendLog(jobID, kind, message)
	}
	skipBatch := func(reason string) {
		logf("error", fmt.Sprintf("[%s] %s, skipping %d link(s)", b.provider, reason, len(b.matches)))
		for range b.matches {
			r.manager.Advance(jobID)
		}
	}

	engine := r.Engines(b.provider)
	if engine == nil {
		skipBatch("not configured")
		return 0
	}

	account, err := engine.Authenticate(ctx)
	if err != nil {
		skipBatch(fmt.Sprintf("authentication failed: %v", err))
		return 0
	}
	logf("info", fmt.Sprintf("[%s] authenticated as %s", b.provider, account))

	target, err := engine.EnsureDestination(ctx, "")
	if err != nil {
		skipBatch(fmt.Sprintf("destination unavailable: %v", err))
		return 0
	}

	succeeded := 0
	for i, match := range b.matches {
		if i > 0 && r.pacer != nil {
			if err := r.pacer.Wait(ctx); err != nil {
				skipBatchTail(logf, r.manager, jobID, b, i)
				return succeeded
			}
		}

		link, result, err := provider.RunTransfer(ctx, engine, target, match, internal.ModeNormal, logf)
		if err != nil {
			logf("error", fmt.Sprintf("[%s] %s failed: %v", b.provider, match.URL, err))
		} else {
			// A transfer that stored content but produced no fresh
			// link (stored but unconfirmed) still counts as a
			// success; the original text keeps the old link.
			succeeded++
			if link != "" {
				*replacements = append(*replacements, Replacement{Start: match.Start, End: match.End, Text: link})
			}
			if result != nil {
				r.runInject(ctx, engine, result.Dest, b.provider, logf)
			}
		}
		r.manager.Advance(jobID)
	}

	return succeeded
}

// skipBatchTail advances the remaining links of a batch abandoned
// mid-way, keeping progress consistent with the announced total.
func skipBatchTail(logf provider.StepLogger, manager *jobs.Manager, jobID string, b batch, from int) {
	logf("error", fmt.Sprintf("[%s] cancelled, skipping %d remaining link(s)", b.provider, len(b.matches)-from))
	for range b.matches[from:] {
		manager.Advance(jobID)
	}
}

// runInject transfers the configured companion resource into the
// destination the primary transfer just used. Success is silent; a
// failure leaves a non-fatal annotation in the job log and never
// affects the primary link's outcome.
func (r *Runner) runInject(ctx context.Context, engine internal.ProviderEngine, dest internal.TargetHandle, p internal.Provider, logf provider.StepLogger) {
	inject := r.cfg.InjectFor(p)
	if !inject.Enabled || dest.IsZero() {
		return
	}
	if !utils.IsValidShareURL(inject.URL) {
		logf("warning", fmt.Sprintf("[%s] companion transfer skipped: unsupported share URL %s", p, inject.URL))
		return
	}

	ref, err := engine.ResolveShare(ctx, inject.URL, inject.Password)
	if err != nil {
		logf("warning", fmt.Sprintf("[%s] companion transfer skipped: %v", p, err))
		return
	}
	if cacher, ok := engine.(resolvedCacher); ok {
		cacher.CacheResolved(inject.URL, ref)
	}

	if _, err := engine.Transfer(ctx, ref, dest, internal.ModeInject); err != nil {
		logf("warning", fmt.Sprintf("[%s] companion transfer failed: %v", p, err))
	}
}
