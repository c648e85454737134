package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/utils"
)

// Errno values the Baidu API returns that need special handling.
const (
	baiduErrnoOK            = 0
	baiduErrnoPathNotFound  = -9
	baiduErrnoAlreadySaved  = 12
	baiduErrnoWrongPasscode = -12
)

var (
	baiduShareIDPattern  = regexp.MustCompile(`"shareid":(\d+)`)
	baiduShareUKPattern  = regexp.MustCompile(`"share_uk":"?(\d+)"?`)
	baiduFsIDPattern     = regexp.MustCompile(`"fs_id":(\d+)`)
	baiduFilenamePattern = regexp.MustCompile(`"server_filename":"((?:[^"\\]|\\.)*)"`)
)

// BaiduEngine implements the path-addressed transfer flow against the
// Baidu netdisk API. Destinations are string paths created on demand,
// every transfer lands in its own suffixed subfolder, and transfers are
// synchronous with errno-style results.
type BaiduEngine struct {
	cookie   string
	saveRoot string
	client   *utils.HTTPClient

	// Overridable in tests.
	Base string

	mu       sync.Mutex
	bdstoken string

	injectMu  sync.Mutex
	injectURL string
	injectRef *internal.ShareReference
}

// NewBaiduEngine creates a Baidu engine from provider configuration.
func NewBaiduEngine(cfg internal.ProviderConfig, client *utils.HTTPClient) *BaiduEngine {
	root := cfg.SaveRoot
	if root == "" {
		root = internal.DefaultBaiduRoot
	}
	return &BaiduEngine{
		cookie:   cfg.Cookie,
		saveRoot: root,
		client:   client,
		Base:     "https://pan.baidu.com",
	}
}

// Name returns the provider identifier.
func (b *BaiduEngine) Name() internal.Provider {
	return internal.ProviderBaidu
}

func (b *BaiduEngine) headers(randsk string) map[string]string {
	cookie := b.cookie
	if randsk != "" {
		cookie = cookie + "; BDCLND=" + randsk
	}
	return map[string]string{
		"Cookie":  cookie,
		"Referer": b.Base + "/disk/home",
	}
}

// commonParams builds the query parameters every netdisk endpoint
// expects, including the session bdstoken once known.
func (b *BaiduEngine) commonParams() url.Values {
	params := url.Values{}
	params.Set("channel", "chunlei")
	params.Set("web", "1")
	params.Set("app_id", "250528")
	params.Set("clienttype", "0")

	b.mu.Lock()
	if b.bdstoken != "" {
		params.Set("bdstoken", b.bdstoken)
	}
	b.mu.Unlock()
	return params
}

type baiduResponse struct {
	Errno int             `json:"errno"`
	Data  json.RawMessage `json:"data"`
}

func decodeBaidu(body []byte, out interface{}) (*baiduResponse, error) {
	var envelope baiduResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, 0, "malformed API response")
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, envelope.Errno, "unexpected data shape")
		}
	}
	return &envelope, nil
}

// Authenticate fetches the session bdstoken; a missing token means the
// cookie is stale.
func (b *BaiduEngine) Authenticate(ctx context.Context) (string, error) {
	if b.cookie == "" {
		return "", internal.NewAuthError(internal.ProviderBaidu, "no cookie configured")
	}

	params := url.Values{}
	params.Set("fields", `["bdstoken","token","uk","isdocuser","servertime"]`)

	resp, err := b.client.Get(ctx, b.Base+"/api/gettemplatevariable?"+params.Encode(), b.headers(""))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var result struct {
		Errno  int `json:"errno"`
		Result struct {
			Bdstoken string `json:"bdstoken"`
			Uk       int64  `json:"uk"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, 0, "malformed API response")
	}
	if result.Errno != baiduErrnoOK || result.Result.Bdstoken == "" {
		return "", internal.NewProviderError(internal.ProviderBaidu, internal.KindAuth, result.Errno, "cookie expired or invalid")
	}

	b.mu.Lock()
	b.bdstoken = result.Result.Bdstoken
	b.mu.Unlock()

	return fmt.Sprintf("uk:%d", result.Result.Uk), nil
}

type baiduEntry struct {
	FsID           int64  `json:"fs_id"`
	ServerFilename string `json:"server_filename"`
	IsDir          int    `json:"isdir"`
}

// listDir lists a directory by path.
func (b *BaiduEngine) listDir(ctx context.Context, dir string) ([]baiduEntry, int, error) {
	params := b.commonParams()
	params.Set("dir", dir)
	params.Set("order", "time")
	params.Set("desc", "1")
	params.Set("num", "100")
	params.Set("page", "1")

	resp, err := b.client.Get(ctx, b.Base+"/api/list?"+params.Encode(), b.headers(""))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}

	var result struct {
		Errno int          `json:"errno"`
		List  []baiduEntry `json:"list"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, 0, "malformed list response")
	}
	return result.List, result.Errno, nil
}

// createDir creates a directory by absolute path.
func (b *BaiduEngine) createDir(ctx context.Context, dir string) error {
	params := b.commonParams()
	params.Set("a", "commit")

	form := url.Values{}
	form.Set("path", dir)
	form.Set("isdir", "1")
	form.Set("block_list", "[]")

	resp, err := b.client.PostForm(ctx, b.Base+"/api/create?"+params.Encode(), b.headers(""), form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return err
	}

	envelope, err := decodeBaidu(body, nil)
	if err != nil {
		return err
	}
	if envelope.Errno != baiduErrnoOK {
		return internal.NewTransferError(internal.ProviderBaidu, envelope.Errno, fmt.Sprintf("creating directory %q failed", dir))
	}
	return nil
}

// EnsureDestination checks the save root exists, creating it when the
// listing reports the path as missing.
func (b *BaiduEngine) EnsureDestination(ctx context.Context, path string) (internal.TargetHandle, error) {
	if path == "" {
		path = b.saveRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	_, errno, err := b.listDir(ctx, path)
	if err != nil {
		return internal.TargetHandle{}, err
	}
	switch errno {
	case baiduErrnoOK:
	case baiduErrnoPathNotFound:
		if err := b.createDir(ctx, path); err != nil {
			return internal.TargetHandle{}, err
		}
	default:
		return internal.TargetHandle{}, internal.NewTransferError(internal.ProviderBaidu, errno, "save root inaccessible")
	}

	return internal.TargetHandle{Path: path}, nil
}

// verifyPasscode exchanges a share passcode for the randsk session key
// the transfer endpoints require.
func (b *BaiduEngine) verifyPasscode(ctx context.Context, shareKey, password string) (string, error) {
	params := b.commonParams()
	params.Set("surl", strings.TrimPrefix(shareKey, "1"))
	params.Set("t", fmt.Sprintf("%d", time.Now().UnixMilli()))

	form := url.Values{}
	form.Set("pwd", password)
	form.Set("vcode", "")
	form.Set("vcode_str", "")

	resp, err := b.client.PostForm(ctx, b.Base+"/share/verify?"+params.Encode(), b.headers(""), form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var result struct {
		Errno  int    `json:"errno"`
		Randsk string `json:"randsk"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, 0, "malformed verify response")
	}
	if result.Errno != baiduErrnoOK || result.Randsk == "" {
		return "", internal.NewStateError(internal.ProviderBaidu, result.Errno, "passcode rejected")
	}
	return result.Randsk, nil
}

// ResolveShare verifies the passcode when present and scrapes the share
// page for the ids the transfer endpoint needs. The netdisk exposes no
// JSON endpoint for foreign shares, so the page markup is the source.
func (b *BaiduEngine) ResolveShare(ctx context.Context, shareURL, password string) (*internal.ShareReference, error) {
	b.injectMu.Lock()
	if b.injectRef != nil && b.injectURL == shareURL {
		cached := b.injectRef
		b.injectMu.Unlock()
		return cached, nil
	}
	b.injectMu.Unlock()

	shareKey, err := utils.ShareKey(shareURL)
	if err != nil {
		return nil, internal.NewFormatError(internal.ProviderBaidu, shareURL)
	}

	randsk := ""
	if password != "" {
		randsk, err = b.verifyPasscode(ctx, shareKey, password)
		if err != nil {
			return nil, err
		}
	}

	resp, err := b.client.Get(ctx, b.Base+"/s/"+shareKey, b.headers(randsk))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	page := string(body)

	shareIDMatch := baiduShareIDPattern.FindStringSubmatch(page)
	shareUKMatch := baiduShareUKPattern.FindStringSubmatch(page)
	fsIDMatches := baiduFsIDPattern.FindAllStringSubmatch(page, -1)
	if shareIDMatch == nil || shareUKMatch == nil || len(fsIDMatches) == 0 {
		return nil, internal.NewStateError(internal.ProviderBaidu, 0, "share page missing transfer ids, link may be expired or passcode required")
	}

	ref := &internal.ShareReference{
		ShareID: shareIDMatch[1],
		Token:   randsk,
		OwnerID: shareUKMatch[1],
	}
	for _, m := range fsIDMatches {
		ref.ItemIDs = append(ref.ItemIDs, m[1])
	}
	if nameMatch := baiduFilenamePattern.FindStringSubmatch(page); nameMatch != nil {
		ref.PrimaryName = decodeScrapedName(nameMatch[1])
	}
	if ref.PrimaryName == "" {
		ref.PrimaryName = "resource"
	}
	return ref, nil
}

// CacheResolved remembers the resolved inject share so repeated inject
// transfers within this engine's run skip the passcode exchange and
// page scrape. The cache holds a single reference.
func (b *BaiduEngine) CacheResolved(shareURL string, ref *internal.ShareReference) {
	b.injectMu.Lock()
	b.injectURL = shareURL
	b.injectRef = ref
	b.injectMu.Unlock()
}

// Transfer saves the shared items into a fresh suffixed subfolder under
// the target path. In inject mode the items go straight into the target
// itself and an "already saved" response counts as success; in normal
// mode that response is a definite failure, since the caller expects a
// fresh copy it can publish.
func (b *BaiduEngine) Transfer(ctx context.Context, ref *internal.ShareReference, target internal.TargetHandle, mode internal.TransferMode) (*internal.TransferResult, error) {
	var folderName, dest string
	if mode == internal.ModeInject {
		dest = target.Path
	} else {
		folderName = sanitizeName(ref.PrimaryName) + "_" + utils.RandomSuffix(4)
		dest = strings.TrimSuffix(target.Path, "/") + "/" + folderName
		if err := b.createDir(ctx, dest); err != nil {
			return nil, err
		}
	}

	params := b.commonParams()
	params.Set("shareid", ref.ShareID)
	params.Set("from", ref.OwnerID)

	form := url.Values{}
	form.Set("fsidlist", "["+strings.Join(ref.ItemIDs, ",")+"]")
	form.Set("path", dest)

	resp, err := b.client.PostForm(ctx, b.Base+"/share/transfer?"+params.Encode(), b.headers(ref.Token), form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	envelope, err := decodeBaidu(body, nil)
	if err != nil {
		return nil, err
	}
	switch envelope.Errno {
	case baiduErrnoOK:
	case baiduErrnoAlreadySaved:
		if mode != internal.ModeInject {
			return nil, internal.NewTransferError(internal.ProviderBaidu, envelope.Errno, "content already present at destination")
		}
	default:
		return nil, internal.NewTransferError(internal.ProviderBaidu, envelope.Errno, "transfer rejected")
	}

	result := &internal.TransferResult{
		Dest:      internal.TargetHandle{Path: dest},
		ItemName:  folderName,
		Confirmed: false,
	}
	if mode == internal.ModeInject {
		result.Confirmed = true
		return result, nil
	}

	// Locate the stored folder to obtain the fs_id sharing needs. The
	// transfer is synchronous, so a folder that is not listed back was
	// never stored; unlike the asynchronous engine there is no
	// "stored but unconfirmed" middle ground here.
	entries, errno, err := b.listDir(ctx, target.Path)
	if err != nil {
		return nil, err
	}
	if errno != baiduErrnoOK {
		return nil, internal.NewTransferError(internal.ProviderBaidu, errno, "cannot list destination after transfer")
	}
	for _, entry := range entries {
		if entry.ServerFilename == folderName {
			result.ItemID = fmt.Sprintf("%d", entry.FsID)
			result.Confirmed = true
			return result, nil
		}
	}
	return nil, internal.NewTransferError(internal.ProviderBaidu, 0, "stored folder missing from destination listing")
}

// Publish shares the stored folder with a random four character
// passcode and returns the link with the passcode inlined.
func (b *BaiduEngine) Publish(ctx context.Context, result *internal.TransferResult, title string) (string, error) {
	if result.ItemID == "" {
		return "", internal.NewShareCreationError(internal.ProviderBaidu, 0, "no stored item to share")
	}

	passcode := strings.ToLower(utils.RandomSuffix(4))

	params := b.commonParams()

	form := url.Values{}
	form.Set("schannel", "4")
	form.Set("channel_list", "[]")
	form.Set("period", "0")
	form.Set("pwd", passcode)
	form.Set("fid_list", "["+result.ItemID+"]")

	resp, err := b.client.PostForm(ctx, b.Base+"/share/set?"+params.Encode(), b.headers(""), form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}

	var shareResult struct {
		Errno int    `json:"errno"`
		Link  string `json:"link"`
	}
	if err := json.Unmarshal(body, &shareResult); err != nil {
		return "", internal.NewProviderError(internal.ProviderBaidu, internal.KindFormat, 0, "malformed share response")
	}
	if shareResult.Errno != baiduErrnoOK || shareResult.Link == "" {
		return "", internal.NewShareCreationError(internal.ProviderBaidu, shareResult.Errno, "share creation rejected")
	}

	return utils.StripQuery(shareResult.Link) + "?pwd=" + passcode, nil
}

// decodeScrapedName undoes the JSON string escaping found in scraped
// page markup, including \uXXXX sequences for CJK names.
func decodeScrapedName(raw string) string {
	var decoded string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &decoded); err != nil {
		return raw
	}
	return decoded
}

// sanitizeName strips path separators from a shared item name before it
// becomes a folder name segment.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '?', '"', '<', '>', '|', '*':
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "resource"
	}
	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}
	return name
}
