package internal

import "context"

// ProviderEngine encapsulates one authenticated session against one storage
// backend and implements the share-consume → transfer → re-share protocol.
// Authenticate must succeed before any other call on the same instance.
type ProviderEngine interface {
	// Name returns the backend this engine talks to.
	Name() Provider

	// Authenticate establishes session validity and returns a display
	// identity for the account.
	Authenticate(ctx context.Context) (string, error)

	// EnsureDestination resolves or creates the destination root for
	// transfers. The folder-addressed backend resolves path segments and
	// fails if one is missing; the path-addressed backend creates the
	// directory, tolerating "already exists".
	EnsureDestination(ctx context.Context, path string) (TargetHandle, error)

	// ResolveShare exchanges a share URL and optional password for the
	// session state authorizing listing and transfer.
	ResolveShare(ctx context.Context, url, password string) (*ShareReference, error)

	// Transfer submits the resolved content for copy into target. In
	// ModeInject a backend "already exists" response counts as success.
	Transfer(ctx context.Context, ref *ShareReference, target TargetHandle, mode TransferMode) (*TransferResult, error)

	// Publish creates a fresh outward share over the transferred content
	// and returns the public link. Never called in ModeInject.
	Publish(ctx context.Context, result *TransferResult, title string) (string, error)
}

// LinkExtractor turns raw pasted text into ordered per-provider match lists.
type LinkExtractor interface {
	Extract(text string) []Match
}

// Notifier delivers a fire-and-forget completion signal.
type Notifier interface {
	Notify(ctx context.Context, title, body string)
}

// Pacer spaces consecutive requests within a provider batch.
type Pacer interface {
	Wait(ctx context.Context) error
}
