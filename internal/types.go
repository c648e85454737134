package internal

// Provider identifies one of the supported storage backends.
type Provider string

const (
	ProviderQuark Provider = "quark"
	ProviderBaidu Provider = "baidu"
)

// TransferMode selects between the normal re-share pipeline and the silent
// inject pass that copies a fixed secondary share into the same destination.
type TransferMode int

const (
	ModeNormal TransferMode = iota
	ModeInject
)

// String returns the string representation of the transfer mode
func (m TransferMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeInject:
		return "inject"
	default:
		return "unknown"
	}
}

// ShareReference is the resolved, backend-specific session state needed to
// authorize a transfer for one share. Quark populates ShareID/Token and the
// per-item token list; Baidu populates ShareID/OwnerID.
type ShareReference struct {
	ShareID     string   // quark pwd_id or baidu shareid
	Token       string   // quark stoken
	OwnerID     string   // baidu share_uk
	ItemIDs     []string // content item identifiers exposed by the share
	ItemTokens  []string // quark share_fid_token per item
	PrimaryName string   // human-readable name of the first item
}

// TargetHandle addresses a transfer destination. Exactly one field is set:
// FolderID for the folder-addressed backend, Path for the path-addressed one.
type TargetHandle struct {
	FolderID string
	Path     string
}

// IsZero reports whether the handle addresses nothing.
func (t TargetHandle) IsZero() bool {
	return t.FolderID == "" && t.Path == ""
}

// TransferResult describes where a transfer landed.
type TransferResult struct {
	// Dest is the location the content was copied into; it is the target
	// for a subsequent inject transfer.
	Dest TargetHandle

	// ItemID is the identifier of the transferred item at the destination,
	// when the backend could locate it.
	ItemID string

	// ItemName is the destination-visible name used to locate the item.
	ItemName string

	// Confirmed is false when the backend accepted the copy but the item
	// could not be located afterwards ("stored but unconfirmed").
	Confirmed bool
}

// Match is one extracted share link occurrence in the input text. Start and
// End are byte offsets of MatchedText within the original input, so
// substitution can target the exact occurrence.
type Match struct {
	Provider    Provider
	MatchedText string
	URL         string
	Password    string
	Start       int
	End         int
}

// InjectConfig describes the per-provider secondary share to plant alongside
// each successful transfer.
type InjectConfig struct {
	URL      string
	Password string
	Enabled  bool
}

// Summary is the completion record of one job.
type Summary struct {
	Succeeded int    `json:"succeeded"`
	Total     int    `json:"total"`
	Duration  string `json:"duration"`
}
