package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hxlong2024/LinkChanger/internal"
	"github.com/hxlong2024/LinkChanger/utils"
)

// QuarkEngine implements the folder-addressed transfer flow against the
// Quark drive API. Destinations are folder ids resolved segment by
// segment from the root, and saves are asynchronous tasks that must be
// polled to completion.
type QuarkEngine struct {
	cookie       string
	saveRoot     string
	client       *utils.HTTPClient
	pollInterval time.Duration
	pollAttempts int

	// Overridable in tests.
	PanBase   string
	DriveBase string

	injectMu  sync.Mutex
	injectURL string
	injectRef *internal.ShareReference
}

// NewQuarkEngine creates a Quark engine from provider configuration.
func NewQuarkEngine(cfg internal.ProviderConfig, client *utils.HTTPClient, pollInterval time.Duration, pollAttempts int) *QuarkEngine {
	root := cfg.SaveRoot
	if root == "" {
		root = internal.DefaultQuarkRoot
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if pollAttempts <= 0 {
		pollAttempts = 8
	}
	return &QuarkEngine{
		cookie:       cfg.Cookie,
		saveRoot:     root,
		client:       client,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		PanBase:      "https://pan.quark.cn",
		DriveBase:    "https://drive-pc.quark.cn",
	}
}

// Name returns the provider identifier.
func (q *QuarkEngine) Name() internal.Provider {
	return internal.ProviderQuark
}

func (q *QuarkEngine) headers() map[string]string {
	return map[string]string{
		"Cookie":  q.cookie,
		"Referer": q.PanBase + "/",
		"Origin":  q.PanBase,
	}
}

// quarkResponse is the envelope every Quark API call returns.
type quarkResponse struct {
	Status  int             `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (q *QuarkEngine) decode(body []byte, out interface{}) (*quarkResponse, error) {
	var envelope quarkResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, internal.NewProviderError(internal.ProviderQuark, internal.KindFormat, 0, "malformed API response")
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return nil, internal.NewProviderError(internal.ProviderQuark, internal.KindFormat, envelope.Code, "unexpected data shape")
		}
	}
	return &envelope, nil
}

func (q *QuarkEngine) getJSON(ctx context.Context, rawURL string, out interface{}) (*quarkResponse, error) {
	resp, err := q.client.Get(ctx, rawURL, q.headers())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	return q.decode(body, out)
}

func (q *QuarkEngine) postJSON(ctx context.Context, rawURL string, payload, out interface{}) (*quarkResponse, error) {
	resp, err := q.client.PostJSON(ctx, rawURL, q.headers(), payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	return q.decode(body, out)
}

// driveURL builds a drive API URL with the pr/fr parameters every
// endpoint requires.
func (q *QuarkEngine) driveURL(path string, extra url.Values) string {
	params := url.Values{}
	params.Set("pr", "ucpro")
	params.Set("fr", "pc")
	for key, values := range extra {
		for _, v := range values {
			params.Add(key, v)
		}
	}
	return q.DriveBase + path + "?" + params.Encode()
}

// Authenticate verifies the configured cookie and returns the account
// nickname.
func (q *QuarkEngine) Authenticate(ctx context.Context) (string, error) {
	if q.cookie == "" {
		return "", internal.NewAuthError(internal.ProviderQuark, "no cookie configured")
	}

	var data struct {
		Nickname string `json:"nickname"`
	}
	envelope, err := q.getJSON(ctx, q.PanBase+"/account/info?fr=pc&platform=pc", &data)
	if err != nil {
		return "", err
	}
	if envelope.Code != 0 && envelope.Status != 200 {
		return "", internal.NewProviderError(internal.ProviderQuark, internal.KindAuth, envelope.Code, "account lookup rejected")
	}
	if data.Nickname == "" {
		return "", internal.NewProviderError(internal.ProviderQuark, internal.KindAuth, envelope.Code, "cookie expired or invalid")
	}
	return data.Nickname, nil
}

type quarkFile struct {
	Fid      string `json:"fid"`
	FileName string `json:"file_name"`
	Dir      bool   `json:"dir"`
}

// listFolder returns the direct children of a folder.
func (q *QuarkEngine) listFolder(ctx context.Context, fid string) ([]quarkFile, error) {
	extra := url.Values{}
	extra.Set("pdir_fid", fid)
	extra.Set("_page", "1")
	extra.Set("_size", "100")
	extra.Set("_sort", "file_type:asc,updated_at:desc")

	var data struct {
		List []quarkFile `json:"list"`
	}
	envelope, err := q.getJSON(ctx, q.driveURL("/1/clouddrive/file/sort", extra), &data)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 {
		return nil, internal.NewTransferError(internal.ProviderQuark, envelope.Code, "folder listing failed")
	}
	return data.List, nil
}

// createFolder creates a child folder and returns its id.
func (q *QuarkEngine) createFolder(ctx context.Context, parentFid, name string) (string, error) {
	payload := map[string]interface{}{
		"pdir_fid":      parentFid,
		"file_name":     name,
		"dir_path":      "",
		"dir_init_lock": false,
	}

	var data struct {
		Fid string `json:"fid"`
	}
	envelope, err := q.postJSON(ctx, q.driveURL("/1/clouddrive/file", nil), payload, &data)
	if err != nil {
		return "", err
	}
	if envelope.Code != 0 || data.Fid == "" {
		return "", internal.NewTransferError(internal.ProviderQuark, envelope.Code, fmt.Sprintf("creating folder %q failed", name))
	}
	return data.Fid, nil
}

// EnsureDestination walks the configured save root from the drive root
// and returns the terminal folder id. Intermediate segments must
// already exist; only the final segment is created on demand.
func (q *QuarkEngine) EnsureDestination(ctx context.Context, path string) (internal.TargetHandle, error) {
	if path == "" {
		path = q.saveRoot
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return internal.TargetHandle{FolderID: "0", Path: path}, nil
	}

	fid := "0"
	for i, segment := range segments {
		children, err := q.listFolder(ctx, fid)
		if err != nil {
			return internal.TargetHandle{}, err
		}

		found := ""
		for _, child := range children {
			if child.Dir && child.FileName == segment {
				found = child.Fid
				break
			}
		}
		if found == "" {
			if i < len(segments)-1 {
				return internal.TargetHandle{}, internal.NewNotFoundError(internal.ProviderQuark, path)
			}
			found, err = q.createFolder(ctx, fid, segment)
			if err != nil {
				return internal.TargetHandle{}, err
			}
		}
		fid = found
	}

	return internal.TargetHandle{FolderID: fid, Path: path}, nil
}

// ResolveShare exchanges a share URL and passcode for the transfer
// tokens the save endpoint needs.
func (q *QuarkEngine) ResolveShare(ctx context.Context, shareURL, password string) (*internal.ShareReference, error) {
	q.injectMu.Lock()
	if q.injectRef != nil && q.injectURL == shareURL {
		cached := q.injectRef
		q.injectMu.Unlock()
		return cached, nil
	}
	q.injectMu.Unlock()

	pwdID, err := utils.ShareKey(shareURL)
	if err != nil {
		return nil, internal.NewFormatError(internal.ProviderQuark, shareURL)
	}

	var tokenData struct {
		Stoken string `json:"stoken"`
	}
	envelope, err := q.postJSON(ctx, q.driveURL("/1/clouddrive/share/sharepage/token", nil), map[string]string{
		"pwd_id":   pwdID,
		"passcode": password,
	}, &tokenData)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 || tokenData.Stoken == "" {
		return nil, internal.NewStateError(internal.ProviderQuark, envelope.Code, "share token rejected, link may be expired or passcode wrong")
	}

	extra := url.Values{}
	extra.Set("pwd_id", pwdID)
	extra.Set("stoken", tokenData.Stoken)
	extra.Set("pdir_fid", "0")
	extra.Set("force", "0")
	extra.Set("_page", "1")
	extra.Set("_size", "50")

	var detailData struct {
		List []struct {
			Fid           string `json:"fid"`
			FileName      string `json:"file_name"`
			ShareFidToken string `json:"share_fid_token"`
		} `json:"list"`
	}
	envelope, err = q.getJSON(ctx, q.driveURL("/1/clouddrive/share/sharepage/detail", extra), &detailData)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 || len(detailData.List) == 0 {
		return nil, internal.NewStateError(internal.ProviderQuark, envelope.Code, "share has no accessible content")
	}

	ref := &internal.ShareReference{
		ShareID:     pwdID,
		Token:       tokenData.Stoken,
		PrimaryName: detailData.List[0].FileName,
	}
	for _, item := range detailData.List {
		ref.ItemIDs = append(ref.ItemIDs, item.Fid)
		ref.ItemTokens = append(ref.ItemTokens, item.ShareFidToken)
	}
	return ref, nil
}

// CacheResolved remembers the resolved inject share so repeated inject
// transfers within this engine's run skip the token exchange. The cache
// holds a single reference.
func (q *QuarkEngine) CacheResolved(shareURL string, ref *internal.ShareReference) {
	q.injectMu.Lock()
	q.injectURL = shareURL
	q.injectRef = ref
	q.injectMu.Unlock()
}

// Transfer saves the shared items into the target folder. The save is a
// server-side task; in normal mode its completion is polled and the
// stored item is then located by listing the target, with the transfer
// reported as stored but unconfirmed when the poll window runs out.
// Inject mode returns as soon as the save task is accepted.
func (q *QuarkEngine) Transfer(ctx context.Context, ref *internal.ShareReference, target internal.TargetHandle, mode internal.TransferMode) (*internal.TransferResult, error) {
	extra := url.Values{}
	extra.Set("__dt", fmt.Sprintf("%d", time.Now().UnixMilli()%100000))
	extra.Set("__t", fmt.Sprintf("%d", time.Now().UnixMilli()))

	payload := map[string]interface{}{
		"fid_list":       ref.ItemIDs,
		"fid_token_list": ref.ItemTokens,
		"to_pdir_fid":    target.FolderID,
		"pwd_id":         ref.ShareID,
		"stoken":         ref.Token,
		"pdir_fid":       "0",
		"scene":          "link",
	}

	var saveData struct {
		TaskID string `json:"task_id"`
	}
	envelope, err := q.postJSON(ctx, q.driveURL("/1/clouddrive/share/sharepage/save", extra), payload, &saveData)
	if err != nil {
		return nil, err
	}
	if envelope.Code != 0 || saveData.TaskID == "" {
		return nil, internal.NewTransferError(internal.ProviderQuark, envelope.Code, "save request rejected")
	}

	result := &internal.TransferResult{
		Dest:      target,
		ItemName:  ref.PrimaryName,
		Confirmed: false,
	}
	if mode == internal.ModeInject {
		// An accepted save task is all an inject transfer needs.
		// It never publishes, so the task is not awaited and the
		// item is not located.
		result.Confirmed = true
		return result, nil
	}

	if err := q.awaitTask(ctx, saveData.TaskID); err != nil {
		return result, nil
	}

	// Locate the stored item by name, falling back to the newest entry.
	children, err := q.listFolder(ctx, target.FolderID)
	if err != nil || len(children) == 0 {
		return result, nil
	}
	located := children[0]
	for _, child := range children {
		if child.FileName == ref.PrimaryName {
			located = child
			break
		}
	}
	result.ItemID = located.Fid
	result.ItemName = located.FileName
	result.Confirmed = true
	return result, nil
}

// awaitTask polls a server-side task until it reports completion.
func (q *QuarkEngine) awaitTask(ctx context.Context, taskID string) error {
	for attempt := 0; attempt < q.pollAttempts; attempt++ {
		select {
		case <-time.After(q.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		extra := url.Values{}
		extra.Set("task_id", taskID)
		extra.Set("retry_index", fmt.Sprintf("%d", attempt))

		var taskData struct {
			Status int `json:"status"`
		}
		envelope, err := q.getJSON(ctx, q.driveURL("/1/clouddrive/task", extra), &taskData)
		if err != nil {
			continue
		}
		if envelope.Code == 0 && taskData.Status == 2 {
			return nil
		}
	}
	return internal.NewTransferError(internal.ProviderQuark, 0, "task did not complete in time")
}

// Publish creates a fresh share for a stored item and resolves its
// public URL.
func (q *QuarkEngine) Publish(ctx context.Context, result *internal.TransferResult, title string) (string, error) {
	if result.ItemID == "" {
		return "", internal.NewShareCreationError(internal.ProviderQuark, 0, "no stored item to share")
	}
	if title == "" {
		title = result.ItemName
	}

	payload := map[string]interface{}{
		"fid_list":     []string{result.ItemID},
		"title":        title,
		"url_type":     1,
		"expired_type": 1,
	}

	var shareData struct {
		TaskID string `json:"task_id"`
	}
	envelope, err := q.postJSON(ctx, q.driveURL("/1/clouddrive/share", nil), payload, &shareData)
	if err != nil {
		return "", err
	}
	if envelope.Code != 0 || shareData.TaskID == "" {
		return "", internal.NewShareCreationError(internal.ProviderQuark, envelope.Code, "share creation rejected")
	}

	shareID, err := q.awaitShareTask(ctx, shareData.TaskID)
	if err != nil {
		return "", err
	}

	var pwdData struct {
		ShareURL string `json:"share_url"`
	}
	envelope, err = q.postJSON(ctx, q.driveURL("/1/clouddrive/share/password", nil), map[string]string{
		"share_id": shareID,
	}, &pwdData)
	if err != nil {
		return "", err
	}
	if envelope.Code != 0 || pwdData.ShareURL == "" {
		return "", internal.NewShareCreationError(internal.ProviderQuark, envelope.Code, "share URL lookup failed")
	}
	return pwdData.ShareURL, nil
}

// awaitShareTask polls a share-creation task until it yields a share id.
func (q *QuarkEngine) awaitShareTask(ctx context.Context, taskID string) (string, error) {
	for attempt := 0; attempt < q.pollAttempts; attempt++ {
		select {
		case <-time.After(q.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		extra := url.Values{}
		extra.Set("task_id", taskID)
		extra.Set("retry_index", fmt.Sprintf("%d", attempt))

		var taskData struct {
			Status  int    `json:"status"`
			ShareID string `json:"share_id"`
		}
		envelope, err := q.getJSON(ctx, q.driveURL("/1/clouddrive/task", extra), &taskData)
		if err != nil {
			continue
		}
		if envelope.Code == 0 && taskData.Status == 2 && taskData.ShareID != "" {
			return taskData.ShareID, nil
		}
	}
	return "", internal.NewShareCreationError(internal.ProviderQuark, 0, "share task did not complete in time")
}

// splitPath splits a save root into folder segments, tolerating both
// separators and leading slashes.
func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
