// Package notify delivers fire-and-forget push notifications when a
// job finishes. Delivery failures are logged and never affect the job
// outcome.
package notify

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
)

const deliveryTimeout = 5 * time.Second

// Bark pushes through the Bark iOS relay.
type Bark struct {
	Key    string
	Base   string
	client *http.Client
}

// NewBark creates a Bark notifier for the given device key.
func NewBark(key string) *Bark {
	return &Bark{
		Key:    key,
		Base:   "https://api.day.app",
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// Notify sends one push. Errors are logged at debug level only.
func (b *Bark) Notify(ctx context.Context, title, body string) {
	endpoint := b.Base + "/" + url.PathEscape(b.Key) + "/" + url.PathEscape(title) + "/" + url.PathEscape(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return
	}
	resp, err := b.client.Do(req)
	if err != nil {
		internal.LogDebug("bark notification failed: %v", err)
		return
	}
	resp.Body.Close()
}

// PushDeer pushes through the PushDeer relay.
type PushDeer struct {
	Key    string
	Base   string
	client *http.Client
}

// NewPushDeer creates a PushDeer notifier for the given push key.
func NewPushDeer(key string) *PushDeer {
	return &PushDeer{
		Key:    key,
		Base:   "https://api2.pushdeer.com",
		client: &http.Client{Timeout: deliveryTimeout},
	}
}

// Notify sends one push. Errors are logged at debug level only.
func (p *PushDeer) Notify(ctx context.Context, title, body string) {
	params := url.Values{}
	params.Set("pushkey", p.Key)
	params.Set("text", title)
	params.Set("desp", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Base+"/message/push?"+params.Encode(), nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		internal.LogDebug("pushdeer notification failed: %v", err)
		return
	}
	resp.Body.Close()
}

// Fanout broadcasts to every configured notifier concurrently.
type Fanout struct {
	targets []internal.Notifier
}

// NewFanout builds a notifier set from configuration. Unconfigured
// channels are skipped; an empty fanout is a no-op.
func NewFanout(cfg *internal.Config) *Fanout {
	f := &Fanout{}
	if cfg.BarkKey != "" {
		f.targets = append(f.targets, NewBark(cfg.BarkKey))
	}
	if cfg.PushDeerKey != "" {
		f.targets = append(f.targets, NewPushDeer(cfg.PushDeerKey))
	}
	return f
}

// Notify dispatches to all targets without waiting for delivery.
func (f *Fanout) Notify(ctx context.Context, title, body string) {
	for _, target := range f.targets {
		go func(n internal.Notifier) {
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
			defer cancel()
			n.Notify(sendCtx, title, body)
		}(target)
	}
}
