package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
)

func TestBarkNotify(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.EscapedPath()
	}))
	defer server.Close()

	b := NewBark("device-key")
	b.Base = server.URL
	b.Notify(context.Background(), "任务完成", "2/2 成功")

	select {
	case path := <-received:
		want := "/device-key/" + url.PathEscape("任务完成") + "/" + url.PathEscape("2/2 成功")
		if path != want {
			t.Errorf("path = %q, want %q", path, want)
		}
	case <-time.After(time.Second):
		t.Fatal("bark request never arrived")
	}
}

func TestPushDeerNotify(t *testing.T) {
	received := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message/push" {
			t.Errorf("path = %q", r.URL.Path)
		}
		received <- r.URL.Query()
	}))
	defer server.Close()

	p := NewPushDeer("push-key")
	p.Base = server.URL
	p.Notify(context.Background(), "title", "body")

	select {
	case query := <-received:
		if query.Get("pushkey") != "push-key" || query.Get("text") != "title" || query.Get("desp") != "body" {
			t.Errorf("query = %v", query)
		}
	case <-time.After(time.Second):
		t.Fatal("pushdeer request never arrived")
	}
}

func TestFanoutSkipsUnconfigured(t *testing.T) {
	f := NewFanout(&internal.Config{})
	if len(f.targets) != 0 {
		t.Errorf("empty config produced %d targets, want 0", len(f.targets))
	}

	// A no-op fanout must not panic or block.
	f.Notify(context.Background(), "t", "b")

	f = NewFanout(&internal.Config{BarkKey: "a", PushDeerKey: "b"})
	if len(f.targets) != 2 {
		t.Errorf("full config produced %d targets, want 2", len(f.targets))
	}
}

func TestFanoutSurvivesCancelledContext(t *testing.T) {
	received := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer server.Close()

	b := NewBark("key")
	b.Base = server.URL
	f := &Fanout{targets: []internal.Notifier{b}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Notify(ctx, "t", "b")

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("notification should outlive the job context")
	}
}
