package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/jobs"
	"github.com/hxlong2024/LinkChanger/provider"
	"github.com/hxlong2024/LinkChanger/utils"
)

// fakeEngine scripts engine behavior per call site.
type fakeEngine struct {
	name        internal.Provider
	authErr     error
	destErr     error
	resolveErr  map[string]error
	unconfirmed map[string]bool

	mu            sync.Mutex
	resolveCalls  []string
	transferModes []internal.TransferMode
	publishCount  int
	cached        map[string]*internal.ShareReference
}

func newFakeEngine(name internal.Provider) *fakeEngine {
	return &fakeEngine{
		name:        name,
		resolveErr:  make(map[string]error),
		unconfirmed: make(map[string]bool),
		cached:      make(map[string]*internal.ShareReference),
	}
}

func (f *fakeEngine) Name() internal.Provider { return f.name }

func (f *fakeEngine) Authenticate(ctx context.Context) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "tester", nil
}

func (f *fakeEngine) EnsureDestination(ctx context.Context, path string) (internal.TargetHandle, error) {
	if f.destErr != nil {
		return internal.TargetHandle{}, f.destErr
	}
	return internal.TargetHandle{FolderID: "dest", Path: "/dest"}, nil
}

func (f *fakeEngine) ResolveShare(ctx context.Context, url, password string) (*internal.ShareReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cached[url]; ok {
		return cached, nil
	}
	f.resolveCalls = append(f.resolveCalls, url)
	if err := f.resolveErr[url]; err != nil {
		return nil, err
	}
	return &internal.ShareReference{ShareID: url, PrimaryName: "item"}, nil
}

func (f *fakeEngine) CacheResolved(url string, ref *internal.ShareReference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached[url] = ref
}

func (f *fakeEngine) Transfer(ctx context.Context, ref *internal.ShareReference, target internal.TargetHandle, mode internal.TransferMode) (*internal.TransferResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferModes = append(f.transferModes, mode)
	return &internal.TransferResult{Dest: target, ItemID: "stored", ItemName: ref.PrimaryName, Confirmed: !f.unconfirmed[ref.ShareID]}, nil
}

func (f *fakeEngine) Publish(ctx context.Context, result *internal.TransferResult, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishCount++
	return fmt.Sprintf("https://pan.%s.example/s/new%d", f.name, f.publishCount), nil
}

func newTestRunner(cfg *internal.Config, m *jobs.Manager, engines map[internal.Provider]internal.ProviderEngine) *Runner {
	return &Runner{
		cfg:       cfg,
		manager:   m,
		extractor: provider.NewExtractor(),
		pacer:     utils.NewRandomPacer(time.Millisecond, 2*time.Millisecond),
		Engines: func(p internal.Provider) internal.ProviderEngine {
			return engines[p]
		},
	}
}

func TestRunBothProvidersSucceed(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	baidu := newFakeEngine(internal.ProviderBaidu)
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
		internal.ProviderBaidu: baidu,
	})

	text := "甲 https://pan.quark.cn/s/one 乙 https://pan.baidu.com/s/1two 丙"
	id := m.Create()
	r.Run(context.Background(), id, text)

	job, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if job.Status != jobs.StatusDone {
		t.Fatalf("Status = %v, want done", job.Status)
	}
	if job.Summary.Succeeded != 2 || job.Summary.Total != 2 {
		t.Errorf("Summary = %+v, want 2/2", job.Summary)
	}
	if strings.Contains(job.ResultText, "pan.quark.cn/s/one") || strings.Contains(job.ResultText, "pan.baidu.com/s/1two") {
		t.Errorf("original links survived: %q", job.ResultText)
	}
	if !strings.Contains(job.ResultText, "甲 ") || !strings.Contains(job.ResultText, " 丙") {
		t.Errorf("surrounding text damaged: %q", job.ResultText)
	}
	if job.Progress.Current != 2 || job.Progress.Total != 2 {
		t.Errorf("progress = %+v, want 2/2", job.Progress)
	}
}

func TestRunAuthFailureSkipsBatch(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	quark.authErr = internal.NewAuthError(internal.ProviderQuark, "cookie expired")
	baidu := newFakeEngine(internal.ProviderBaidu)
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
		internal.ProviderBaidu: baidu,
	})

	text := "https://pan.quark.cn/s/one 和 https://pan.baidu.com/s/1two"
	id := m.Create()
	r.Run(context.Background(), id, text)

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 1 || job.Summary.Total != 2 {
		t.Errorf("Summary = %+v, want 1/2", job.Summary)
	}
	if !strings.Contains(job.ResultText, "https://pan.quark.cn/s/one") {
		t.Error("failed batch link should keep its original text")
	}
	if strings.Contains(job.ResultText, "pan.baidu.com/s/1two") {
		t.Error("healthy batch link should be replaced")
	}
	if job.Progress.Current != 2 {
		t.Errorf("progress = %d, skipped links must still advance", job.Progress.Current)
	}
	if len(quark.resolveCalls) != 0 {
		t.Error("auth failure must skip the batch before resolving")
	}
}

func TestRunResolveFailureKeepsOriginalLink(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	quark.resolveErr["https://pan.quark.cn/s/bad?pwd=xxxx"] = internal.NewStateError(internal.ProviderQuark, 0, "passcode rejected")
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	text := "https://pan.quark.cn/s/bad?pwd=xxxx 和 https://pan.quark.cn/s/good"
	id := m.Create()
	r.Run(context.Background(), id, text)

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 1 || job.Summary.Total != 2 {
		t.Errorf("Summary = %+v, want 1/2", job.Summary)
	}
	if !strings.Contains(job.ResultText, "https://pan.quark.cn/s/bad?pwd=xxxx") {
		t.Error("unresolvable link should keep its original text")
	}
	if strings.Contains(job.ResultText, "s/good") {
		t.Error("good link should be replaced")
	}
}

func TestRunDuplicateLiteralsReplacedPositionally(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	text := "https://pan.quark.cn/s/same 再来 https://pan.quark.cn/s/same"
	id := m.Create()
	r.Run(context.Background(), id, text)

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 2 {
		t.Fatalf("Summary = %+v, want 2/2", job.Summary)
	}
	if strings.Contains(job.ResultText, "s/same") {
		t.Errorf("both occurrences should be replaced: %q", job.ResultText)
	}
	if !strings.Contains(job.ResultText, " 再来 ") {
		t.Errorf("separator damaged: %q", job.ResultText)
	}
}

func TestRunUnconfirmedCountsAsSuccess(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	quark.unconfirmed["https://pan.quark.cn/s/slow"] = true
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	text := "https://pan.quark.cn/s/slow 和 https://pan.quark.cn/s/fast"
	id := m.Create()
	r.Run(context.Background(), id, text)

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 2 || job.Summary.Total != 2 {
		t.Errorf("Summary = %+v, want 2/2", job.Summary)
	}
	if !strings.Contains(job.ResultText, "https://pan.quark.cn/s/slow") {
		t.Error("unconfirmed link must keep its original text")
	}
	if strings.Contains(job.ResultText, "s/fast") {
		t.Error("confirmed link should be replaced")
	}
	if quark.publishCount != 1 {
		t.Errorf("publish called %d times, want 1", quark.publishCount)
	}
	warned := false
	for _, entry := range job.Logs {
		if entry.Kind == "warning" && strings.Contains(entry.Message, "not confirmed") {
			warned = true
		}
	}
	if !warned {
		t.Error("unconfirmed transfer should leave a warning line")
	}
}

func TestRunInjectUsesCache(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)

	cfg := internal.DefaultConfig()
	cfg.Quark.Inject = internal.InjectConfig{URL: "https://pan.quark.cn/s/inject", Enabled: true}
	r := newTestRunner(cfg, m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	// Two links in one batch: the companion resource transfers after
	// each success but must only be resolved once.
	id := m.Create()
	r.Run(context.Background(), id, "https://pan.quark.cn/s/va 和 https://pan.quark.cn/s/vb")

	injectResolves := 0
	for _, url := range quark.resolveCalls {
		if url == "https://pan.quark.cn/s/inject" {
			injectResolves++
		}
	}
	if injectResolves != 1 {
		t.Errorf("inject resolved %d times, want 1", injectResolves)
	}

	injects := 0
	for _, mode := range quark.transferModes {
		if mode == internal.ModeInject {
			injects++
		}
	}
	if injects != 2 {
		t.Errorf("inject transferred %d times, want 2", injects)
	}
	if quark.publishCount != 2 {
		t.Errorf("publish called %d times, inject must never publish", quark.publishCount)
	}
}

func TestRunInjectSilent(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)

	cfg := internal.DefaultConfig()
	cfg.Quark.Inject = internal.InjectConfig{URL: "https://pan.quark.cn/s/inject", Enabled: true}
	r := newTestRunner(cfg, m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	id := m.Create()
	r.Run(context.Background(), id, "https://pan.quark.cn/s/visible")

	job, _ := m.Get(id)
	for _, entry := range job.Logs {
		if strings.Contains(entry.Message, "s/inject") || strings.Contains(entry.Message, "companion") {
			t.Errorf("successful companion transfer leaked into the job log: %q", entry.Message)
		}
	}
	if strings.Contains(job.ResultText, "inject") {
		t.Errorf("companion link leaked into the result text: %q", job.ResultText)
	}
	if job.Summary.Total != 1 {
		t.Errorf("Total = %d, the companion transfer must not count as a link", job.Summary.Total)
	}
}

func TestRunInjectFailureIsNonFatal(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)
	quark.resolveErr["https://pan.quark.cn/s/inject"] = internal.NewStateError(internal.ProviderQuark, 0, "expired")

	cfg := internal.DefaultConfig()
	cfg.Quark.Inject = internal.InjectConfig{URL: "https://pan.quark.cn/s/inject", Enabled: true}
	r := newTestRunner(cfg, m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	id := m.Create()
	r.Run(context.Background(), id, "https://pan.quark.cn/s/visible")

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 1 {
		t.Errorf("Summary = %+v, companion failure must not fail the link", job.Summary)
	}
	annotated := false
	for _, entry := range job.Logs {
		if entry.Kind == "warning" && strings.Contains(entry.Message, "companion") {
			annotated = true
		}
	}
	if !annotated {
		t.Error("companion failure should leave a warning annotation")
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	bodies []string
}

func (n *recordingNotifier) Notify(ctx context.Context, title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bodies = append(n.bodies, body)
}

func TestRunInjectUnsupportedURLSkipped(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	quark := newFakeEngine(internal.ProviderQuark)

	cfg := internal.DefaultConfig()
	cfg.Quark.Inject = internal.InjectConfig{URL: "https://example.com/not-a-share", Enabled: true}
	r := newTestRunner(cfg, m, map[internal.Provider]internal.ProviderEngine{
		internal.ProviderQuark: quark,
	})

	id := m.Create()
	r.Run(context.Background(), id, "https://pan.quark.cn/s/visible")

	job, _ := m.Get(id)
	if job.Summary.Succeeded != 1 {
		t.Errorf("Summary = %+v, a bad companion URL must not fail the link", job.Summary)
	}
	if len(quark.resolveCalls) != 1 {
		t.Errorf("resolve calls = %v, the unsupported companion URL must not be resolved", quark.resolveCalls)
	}
	annotated := false
	for _, entry := range job.Logs {
		if entry.Kind == "warning" && strings.Contains(entry.Message, "companion") {
			annotated = true
		}
	}
	if !annotated {
		t.Error("skipping the companion transfer should leave a warning annotation")
	}
}

func TestRunNoLinks(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	r := newTestRunner(internal.DefaultConfig(), m, nil)
	notifier := &recordingNotifier{}
	r.notifier = notifier

	id := m.Create()
	r.Run(context.Background(), id, "没有链接的文本")

	job, _ := m.Get(id)
	if job.Status != jobs.StatusDone {
		t.Fatalf("Status = %v, want done", job.Status)
	}
	if job.Summary.Total != 0 || job.Summary.Succeeded != 0 {
		t.Errorf("Summary = %+v, want 0/0", job.Summary)
	}
	if job.ResultText != "没有链接的文本" {
		t.Errorf("ResultText = %q, want original text", job.ResultText)
	}
	if len(notifier.bodies) != 1 || !strings.Contains(notifier.bodies[0], "0/0") {
		t.Errorf("notifications = %v, completion must notify even without links", notifier.bodies)
	}
}

func TestRunUnconfiguredProvider(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	r := newTestRunner(internal.DefaultConfig(), m, map[internal.Provider]internal.ProviderEngine{})

	id := m.Create()
	r.Run(context.Background(), id, "https://pan.quark.cn/s/one")

	job, _ := m.Get(id)
	if job.Status != jobs.StatusDone {
		t.Fatalf("Status = %v, want done", job.Status)
	}
	if job.Summary.Succeeded != 0 || job.Summary.Total != 1 {
		t.Errorf("Summary = %+v, want 0/1", job.Summary)
	}
	if job.Progress.Current != 1 {
		t.Errorf("progress = %d, want 1", job.Progress.Current)
	}
}

type panicExtractor struct{}

func (panicExtractor) Extract(string) []internal.Match { panic("boom") }

func TestRunPanicStillCompletes(t *testing.T) {
	m := jobs.NewManager(time.Hour)
	r := newTestRunner(internal.DefaultConfig(), m, nil)
	r.extractor = panicExtractor{}

	id := m.Create()
	r.Run(context.Background(), id, "anything")

	job, _ := m.Get(id)
	if job.Status != jobs.StatusDone {
		t.Fatal("panicking job must still complete")
	}
	if job.ResultText != "anything" {
		t.Errorf("ResultText = %q, want original text", job.ResultText)
	}
	found := false
	for _, entry := range job.Logs {
		if entry.Kind == "error" {
			found = true
		}
	}
	if !found {
		t.Error("panic should leave an error log line")
	}
}
