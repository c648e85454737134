package provider

import (
	"context"
	"fmt"

	"github.com/hxlong2024/LinkChanger/internal"
)

// StepLogger receives human-readable progress lines from the pipeline.
// Kind is one of "info", "success", "warning" or "error".
type StepLogger func(kind, message string)

// RunTransfer carries one share link through resolve, transfer and
// publish. It returns the freshly published URL and the transfer
// result, whose destination handle a follow-up inject transfer reuses.
//
// In inject mode the pipeline stops after the transfer; nothing is
// published and nothing is logged on success.
//
// A normal-mode transfer that stored content but could not be
// confirmed is not an error: the content is safe in the account even
// though no new share can be created for it. That case returns an
// empty URL and a nil error, and the caller leaves the original link
// untouched.
func RunTransfer(ctx context.Context, engine internal.ProviderEngine, target internal.TargetHandle, match internal.Match, mode internal.TransferMode, logf StepLogger) (string, *internal.TransferResult, error) {
	if logf == nil {
		logf = func(string, string) {}
	}
	announce := mode == internal.ModeNormal

	if announce {
		logf("info", fmt.Sprintf("[%s] resolving %s", engine.Name(), match.URL))
	}
	ref, err := engine.ResolveShare(ctx, match.URL, match.Password)
	if err != nil {
		return "", nil, err
	}

	if announce {
		logf("info", fmt.Sprintf("[%s] transferring %q", engine.Name(), ref.PrimaryName))
	}
	result, err := engine.Transfer(ctx, ref, target, mode)
	if err != nil {
		return "", nil, err
	}

	if mode == internal.ModeInject {
		return "", result, nil
	}

	if !result.Confirmed {
		logf("warning", fmt.Sprintf("[%s] %q stored but not confirmed, keeping original link", engine.Name(), ref.PrimaryName))
		return "", result, nil
	}

	logf("info", fmt.Sprintf("[%s] publishing %q", engine.Name(), result.ItemName))
	link, err := engine.Publish(ctx, result, ref.PrimaryName)
	if err != nil {
		return "", result, err
	}

	logf("success", fmt.Sprintf("[%s] %s -> %s", engine.Name(), match.URL, link))
	return link, result, nil
}
