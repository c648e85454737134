package provider

import (
	"context"
	"testing"

	"github.com/hxlong2024/LinkChanger/internal"
)

// scriptedEngine drives the pipeline without network calls.
type scriptedEngine struct {
	resolveErr   error
	transferErr  error
	publishErr   error
	confirmed    bool
	publishCalls int
}

func (s *scriptedEngine) Name() internal.Provider { return internal.ProviderQuark }

func (s *scriptedEngine) Authenticate(ctx context.Context) (string, error) { return "tester", nil }

func (s *scriptedEngine) EnsureDestination(ctx context.Context, path string) (internal.TargetHandle, error) {
	return internal.TargetHandle{FolderID: "dest"}, nil
}

func (s *scriptedEngine) ResolveShare(ctx context.Context, url, password string) (*internal.ShareReference, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return &internal.ShareReference{ShareID: "x", PrimaryName: "item"}, nil
}

func (s *scriptedEngine) Transfer(ctx context.Context, ref *internal.ShareReference, target internal.TargetHandle, mode internal.TransferMode) (*internal.TransferResult, error) {
	if s.transferErr != nil {
		return nil, s.transferErr
	}
	return &internal.TransferResult{Dest: target, ItemID: "stored", ItemName: "item", Confirmed: s.confirmed}, nil
}

func (s *scriptedEngine) Publish(ctx context.Context, result *internal.TransferResult, title string) (string, error) {
	s.publishCalls++
	if s.publishErr != nil {
		return "", s.publishErr
	}
	return "https://pan.quark.cn/s/fresh", nil
}

func testMatch() internal.Match {
	return internal.Match{
		Provider:    internal.ProviderQuark,
		URL:         "https://pan.quark.cn/s/old",
		MatchedText: "https://pan.quark.cn/s/old",
	}
}

func TestRunTransferSuccess(t *testing.T) {
	engine := &scriptedEngine{confirmed: true}

	link, result, err := RunTransfer(context.Background(), engine, internal.TargetHandle{FolderID: "dest"}, testMatch(), internal.ModeNormal, nil)
	if err != nil {
		t.Fatalf("RunTransfer() error = %v", err)
	}
	if link != "https://pan.quark.cn/s/fresh" {
		t.Errorf("link = %q", link)
	}
	if result == nil || result.Dest.FolderID != "dest" {
		t.Errorf("result = %+v", result)
	}
}

func TestRunTransferUnconfirmedIsDegradedSuccess(t *testing.T) {
	engine := &scriptedEngine{confirmed: false}

	var warned bool
	logf := func(kind, message string) {
		if kind == "warning" {
			warned = true
		}
	}

	link, result, err := RunTransfer(context.Background(), engine, internal.TargetHandle{FolderID: "dest"}, testMatch(), internal.ModeNormal, logf)
	if err != nil {
		t.Fatalf("RunTransfer() error = %v, unconfirmed must not be a failure", err)
	}
	if link != "" {
		t.Errorf("link = %q, unconfirmed transfer must not publish", link)
	}
	if result == nil {
		t.Fatal("result missing for unconfirmed transfer")
	}
	if engine.publishCalls != 0 {
		t.Error("publish must be skipped when the item was not located")
	}
	if !warned {
		t.Error("unconfirmed transfer should log a warning")
	}
}

func TestRunTransferInjectSkipsPublish(t *testing.T) {
	engine := &scriptedEngine{confirmed: true}

	var logged int
	logf := func(kind, message string) { logged++ }

	link, _, err := RunTransfer(context.Background(), engine, internal.TargetHandle{FolderID: "dest"}, testMatch(), internal.ModeInject, logf)
	if err != nil {
		t.Fatalf("RunTransfer() error = %v", err)
	}
	if link != "" {
		t.Errorf("link = %q, inject mode must not publish", link)
	}
	if engine.publishCalls != 0 {
		t.Error("publish called in inject mode")
	}
	if logged != 0 {
		t.Errorf("inject mode logged %d lines, want 0", logged)
	}
}

func TestRunTransferResolveFailure(t *testing.T) {
	engine := &scriptedEngine{resolveErr: internal.NewStateError(internal.ProviderQuark, 0, "expired")}

	_, _, err := RunTransfer(context.Background(), engine, internal.TargetHandle{FolderID: "dest"}, testMatch(), internal.ModeNormal, nil)
	if err == nil {
		t.Fatal("RunTransfer() should propagate the resolve failure")
	}
	if kind, ok := internal.KindOf(err); !ok || kind != internal.KindState {
		t.Errorf("error kind = %v, want KindState", kind)
	}
}
