package main

import (
	"archive/tar"
	"compress/gzip"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

const (
	defaultAPIBase  = "https://api.openworldlabs.ai"
	defaultDataRoot = "./data_dump/games"
	signUpURL       = "https://wayfarerlabs.ai/handler/sign-in"

	minFootageSeconds    = 30
	maxFootageSeconds    = 600
	recordingBitrateMbps = 2

	sessionFileName = ".session"
	sessionVersion  = "1.0"

	serviceMsgBuffer = 64
	logKeep          = 200
	footerLogLines   = 3
)

// Failure text synthesized locally when the worker queue cannot carry a
// request. The UI treats these exactly like failures reported by a handler.
const (
	failureOverloaded        = "request queue overloaded"
	failureWorkerUnavailable = "worker unavailable"
)

type appConfig struct {
	apiBase           string
	dataRoot          string
	credentialsFile   string
	requestTimeout    time.Duration
	uploadTimeout     time.Duration
	queueSize         int
	pollInterval      time.Duration
	deleteAfterUpload bool
	altScreen         bool
}

// ---------------------------------------------------------------------------
// Async request envelopes and outcomes

type requestKind int

const (
	kindValidateKey requestKind = iota
	kindUploadBatch
)

func (k requestKind) String() string {
	switch k {
	case kindValidateKey:
		return "validate-key"
	case kindUploadBatch:
		return "upload-batch"
	default:
		return fmt.Sprintf("request-%d", int(k))
	}
}

// asyncRequest is the closed set of commands the UI may hand to the worker.
// Envelopes are immutable values; ownership moves into the channel on send.
type asyncRequest interface {
	kind() requestKind
}

type validateKeyRequest struct {
	apiKey string
}

func (validateKeyRequest) kind() requestKind { return kindValidateKey }

type uploadBatchRequest struct {
	apiKey      string
	entries     []recordingEntry
	deleteAfter bool
}

func (uploadBatchRequest) kind() requestKind { return kindUploadBatch }

// outcome is the terminal result of exactly one accepted envelope.
type outcome struct {
	kind    requestKind
	payload string
	failure string
}

func (o outcome) failed() bool { return o.failure != "" }

func successOutcome(kind requestKind, payload string) outcome {
	return outcome{kind: kind, payload: payload}
}

func failureOutcome(kind requestKind, failure string) outcome {
	return outcome{kind: kind, failure: failure}
}

// ---------------------------------------------------------------------------
// Dispatcher: per-kind guard plus reconciliation slots

type slotState int

const (
	slotIdle slotState = iota
	slotPending
	slotResolved
)

type actionSlot struct {
	state slotState
	last  outcome // meaningful only when state == slotResolved
}

// dispatcher owns the request channel toward the worker and one slot per
// request kind. Every method runs on the UI goroutine (submit and read from
// the frame loop, resolve when an outcome message is drained), so the slot
// map needs no lock; the worker only ever touches the channel.
type dispatcher struct {
	requests chan asyncRequest
	slots    map[requestKind]actionSlot
	closed   bool
}

func newDispatcher(queueSize int) *dispatcher {
	return &dispatcher{
		requests: make(chan asyncRequest, maxInt(1, queueSize)),
		slots:    map[requestKind]actionSlot{},
	}
}

// submit hands an envelope to the worker queue. The bool reports whether the
// submission was accepted; false means a request of the same kind is still
// pending and nothing entered the channel. When the queue cannot carry the
// request the slot resolves immediately and the synthesized failure is
// returned so the caller can react in the same frame.
func (d *dispatcher) submit(req asyncRequest) (bool, *outcome) {
	k := req.kind()
	if d.slots[k].state == slotPending {
		return false, nil
	}
	if d.closed {
		out := failureOutcome(k, failureWorkerUnavailable)
		d.slots[k] = actionSlot{state: slotResolved, last: out}
		return true, &out
	}
	select {
	case d.requests <- req:
		d.slots[k] = actionSlot{state: slotPending}
		return true, nil
	default:
		out := failureOutcome(k, failureOverloaded)
		d.slots[k] = actionSlot{state: slotResolved, last: out}
		return true, &out
	}
}

// resolve records the outcome for its kind and clears the guard. Replays of
// an already-recorded outcome are harmless: the slot is record-replace.
func (d *dispatcher) resolve(out outcome) {
	d.slots[out.kind] = actionSlot{state: slotResolved, last: out}
}

// read reports the per-kind guard and, once idle again, the latest outcome.
// Called once per frame by the view; never blocks, never mutates.
func (d *dispatcher) read(k requestKind) (bool, *outcome) {
	slot := d.slots[k]
	if slot.state == slotResolved {
		out := slot.last
		return false, &out
	}
	return slot.state == slotPending, nil
}

// shutdown closes the request channel. The worker drains what is queued,
// answers it, and then closes its outcome channel.
func (d *dispatcher) shutdown() {
	if d.closed {
		return
	}
	d.closed = true
	close(d.requests)
}

// markWorkerLost resolves every pending slot to a worker-unavailable failure
// once the outcome channel is observed closed, so no kind stays pending
// forever. Returns the synthesized outcomes for the caller to react to.
func (d *dispatcher) markWorkerLost() []outcome {
	d.closed = true
	synthesized := []outcome{}
	for k, slot := range d.slots {
		if slot.state != slotPending {
			continue
		}
		out := failureOutcome(k, failureWorkerUnavailable)
		d.slots[k] = actionSlot{state: slotResolved, last: out}
		synthesized = append(synthesized, out)
	}
	sort.Slice(synthesized, func(i, j int) bool { return synthesized[i].kind < synthesized[j].kind })
	return synthesized
}

// ---------------------------------------------------------------------------
// Remote API client

type owlClient struct {
	apiBase       string
	timeout       time.Duration
	uploadTimeout time.Duration
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api http %d: %s", e.status, compactSingleLine(e.body, 200))
}

func (c owlClient) endpoint(path string) string {
	return strings.TrimRight(strings.TrimSpace(c.apiBase), "/") + path
}

func (c owlClient) do(req *http.Request, timeout time.Duration) ([]byte, error) {
	client := &http.Client{Timeout: maxDuration(time.Second, timeout)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{status: resp.StatusCode, body: string(payload)}
	}
	return payload, nil
}

func (c owlClient) validateKey(apiKey string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, c.endpoint("/v1/users/me"), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-API-Key", apiKey)
	payload, err := c.do(req, c.timeout)
	if err != nil {
		return "", fmt.Errorf("key validation failed on /v1/users/me: %w", err)
	}
	var parsed struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", errors.New("validation endpoint returned non-json payload")
	}
	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		return "", errors.New("validation endpoint returned no user id")
	}
	return userID, nil
}

type uploadGrant struct {
	UploadID  string `json:"upload_id"`
	UploadURL string `json:"upload_url"`
}

type createUploadBody struct {
	Filename      string        `json:"filename"`
	Size          int64         `json:"size"`
	Tags          []string      `json:"tags"`
	SessionTokens []uploadToken `json:"session_tokens"`
}

func (c owlClient) createUpload(apiKey string, body createUploadBody) (uploadGrant, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return uploadGrant{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint("/v1/uploads"), strings.NewReader(string(buf)))
	if err != nil {
		return uploadGrant{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
	payload, err := c.do(req, c.timeout)
	if err != nil {
		return uploadGrant{}, fmt.Errorf("presign failed on /v1/uploads: %w", err)
	}
	var grant uploadGrant
	if err := json.Unmarshal(payload, &grant); err != nil {
		return uploadGrant{}, errors.New("presign endpoint returned non-json payload")
	}
	if grant.UploadID == "" || grant.UploadURL == "" {
		return uploadGrant{}, errors.New("presign endpoint returned an incomplete grant")
	}
	return grant, nil
}

func (c owlClient) putArchive(uploadURL, archivePath string, size int64) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()
	req, err := http.NewRequest(http.MethodPut, uploadURL, file)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/gzip")
	if _, err := c.do(req, maxDuration(c.timeout, c.uploadTimeout)); err != nil {
		return fmt.Errorf("archive PUT failed: %w", err)
	}
	return nil
}

func (c owlClient) completeUpload(apiKey, uploadID string) error {
	req, err := http.NewRequest(http.MethodPost, c.endpoint("/v1/uploads/"+uploadID+"/complete"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", apiKey)
	if _, err := c.do(req, c.timeout); err != nil {
		return fmt.Errorf("upload completion failed: %w", err)
	}
	return nil
}

type apiErrorClass struct {
	Code   string
	Domain bool // credential/request rejected by the service, not transport
}

func classifyAPIError(err error) apiErrorClass {
	var httpErr *apiError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.status == http.StatusUnauthorized, httpErr.status == http.StatusForbidden:
			return apiErrorClass{Code: "invalid_key", Domain: true}
		case httpErr.status == http.StatusTooManyRequests:
			return apiErrorClass{Code: "rate_limited"}
		case httpErr.status >= 500:
			return apiErrorClass{Code: "service_error"}
		default:
			return apiErrorClass{Code: "http_error", Domain: true}
		}
	}
	normalized := strings.ToLower(err.Error())
	switch {
	case strings.Contains(normalized, "context deadline exceeded"), strings.Contains(normalized, "timeout"), strings.Contains(normalized, "timed out"):
		return apiErrorClass{Code: "timeout"}
	case strings.Contains(normalized, "connection refused"), strings.Contains(normalized, "dial tcp"), strings.Contains(normalized, "no such host"):
		return apiErrorClass{Code: "endpoint_unreachable"}
	default:
		return apiErrorClass{Code: "unknown"}
	}
}

func describeAPIFailure(err error) string {
	if classifyAPIError(err).Code == "invalid_key" {
		return "invalid API key"
	}
	return compactSingleLine(err.Error(), 200)
}

// ---------------------------------------------------------------------------
// Recording sessions (HMAC-signed manifests written by the recorder)

type sessionFile struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Hash     string `json:"hash"`
	Size     int64  `json:"size"`
	AddedAt  int64  `json:"added_at"`
}

type sessionMetadata struct {
	SessionID    string `json:"session_id"`
	GameName     string `json:"game_name"`
	MachineID    string `json:"machine_id"`
	CreatedAt    int64  `json:"created_at"`
	RecordingDir string `json:"recording_dir"`
	Version      string `json:"version"`
}

type sessionManifest struct {
	Session     sessionMetadata        `json:"session"`
	Files       map[string]sessionFile `json:"files"`
	CompletedAt int64                  `json:"completed_at"`
	DurationSec int64                  `json:"duration"`
}

type sessionRecord struct {
	Manifest  sessionManifest `json:"manifest"`
	Signature string          `json:"signature"`
	Secret    string          `json:"session_secret"`
}

type recordingSession struct {
	sessionID    string
	gameName     string
	machineID    string
	recordingDir string
	createdAt    int64
	completedAt  int64
	completed    bool
	secret       string
	files        map[string]sessionFile
}

func newRecordingSession(gameName, recordingDir string) (*recordingSession, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	return &recordingSession{
		sessionID:    uuid.NewString(),
		gameName:     gameName,
		machineID:    hostname,
		recordingDir: recordingDir,
		createdAt:    time.Now().Unix(),
		secret:       hex.EncodeToString(secret),
		files:        map[string]sessionFile{},
	}, nil
}

func (s *recordingSession) addFile(filename, path string) error {
	hash, size, err := hashFile(path)
	if err != nil {
		return err
	}
	s.files[filename] = sessionFile{
		Filename: filename,
		Path:     path,
		Hash:     hash,
		Size:     size,
		AddedAt:  time.Now().Unix(),
	}
	return nil
}

func hashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()
	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}

func (s *recordingSession) manifest() sessionManifest {
	return sessionManifest{
		Session: sessionMetadata{
			SessionID:    s.sessionID,
			GameName:     s.gameName,
			MachineID:    s.machineID,
			CreatedAt:    s.createdAt,
			RecordingDir: s.recordingDir,
			Version:      sessionVersion,
		},
		Files:       s.files,
		CompletedAt: s.completedAt,
		DurationSec: maxInt64(0, s.completedAt-s.createdAt),
	}
}

func signManifest(secret string, manifest sessionManifest) (string, error) {
	buf, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(buf)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// complete marks the session finished and writes the signed .session record
// into the recording directory.
func (s *recordingSession) complete(videoPath, csvPath string) error {
	if err := s.addFile("video.mp4", videoPath); err != nil {
		return err
	}
	if err := s.addFile("inputs.csv", csvPath); err != nil {
		return err
	}
	s.completed = true
	s.completedAt = time.Now().Unix()

	signature, err := signManifest(s.secret, s.manifest())
	if err != nil {
		return err
	}
	record := sessionRecord{Manifest: s.manifest(), Signature: signature, Secret: s.secret}
	buf, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.recordingDir, sessionFileName), buf, 0o644)
}

// loadSessionFromDirectory reads a .session record and rejects it when the
// manifest signature does not verify.
func loadSessionFromDirectory(dir string) (*recordingSession, error) {
	raw, err := os.ReadFile(filepath.Join(dir, sessionFileName))
	if err != nil {
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unreadable session record: %w", err)
	}
	expected, err := signManifest(record.Secret, record.Manifest)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(expected), []byte(record.Signature)) {
		return nil, errors.New("session manifest signature mismatch")
	}
	meta := record.Manifest.Session
	return &recordingSession{
		sessionID:    meta.SessionID,
		gameName:     meta.GameName,
		machineID:    meta.MachineID,
		recordingDir: dir,
		createdAt:    meta.CreatedAt,
		completedAt:  record.Manifest.CompletedAt,
		completed:    true,
		secret:       record.Secret,
		files:        record.Manifest.Files,
	}, nil
}

type uploadClaimFile struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

type uploadClaim struct {
	SessionID string                     `json:"session_id"`
	MachineID string                     `json:"machine_id"`
	Timestamp int64                      `json:"timestamp"`
	Files     map[string]uploadClaimFile `json:"files"`
}

type uploadToken struct {
	Claim     uploadClaim `json:"claim"`
	Signature string      `json:"signature"`
	SessionID string      `json:"session_id"`
}

// uploadToken signs an upload claim with the api key and session secret so
// the service can tie the archive back to a genuine recording session.
func (s *recordingSession) uploadToken(apiKey string) (uploadToken, error) {
	if !s.completed {
		return uploadToken{}, errors.New("cannot generate upload token for incomplete session")
	}
	claim := uploadClaim{
		SessionID: s.sessionID,
		MachineID: s.machineID,
		Timestamp: time.Now().Unix(),
		Files:     map[string]uploadClaimFile{},
	}
	for name, file := range s.files {
		claim.Files[name] = uploadClaimFile{Hash: file.Hash, Size: file.Size}
	}
	buf, err := json.Marshal(claim)
	if err != nil {
		return uploadToken{}, err
	}
	combined := apiKey + ":" + s.secret + ":" + s.sessionID
	mac := hmac.New(sha256.New, []byte(combined))
	mac.Write(buf)
	return uploadToken{
		Claim:     claim,
		Signature: hex.EncodeToString(mac.Sum(nil)),
		SessionID: s.sessionID,
	}, nil
}

// ---------------------------------------------------------------------------
// Recording scan and validity filter

type recordingEntry struct {
	dir           string
	game          string
	duration      float64
	videoSize     int64
	hasSession    bool
	invalidReason string
}

func (e recordingEntry) uploadable() bool {
	return e.invalidReason == "" && e.hasSession
}

// scanRecordings walks the data root for directories holding a recorded
// clip (video.mp4 + inputs.csv + meta.json). Recording directories are
// leaves; once one is found its subtree is skipped.
func scanRecordings(root string) ([]recordingEntry, error) {
	entries := []recordingEntry{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(path, "video.mp4")); statErr != nil {
			return nil
		}
		entries = append(entries, inspectRecording(path))
		return fs.SkipDir
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []recordingEntry{}, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].dir < entries[j].dir })
	return entries, nil
}

func inspectRecording(dir string) recordingEntry {
	entry := recordingEntry{dir: dir, game: filepath.Base(dir)}
	if _, err := os.Stat(filepath.Join(dir, sessionFileName)); err == nil {
		entry.hasSession = true
	}
	info, err := os.Stat(filepath.Join(dir, "video.mp4"))
	if err != nil {
		entry.invalidReason = "missing video.mp4"
		return entry
	}
	entry.videoSize = info.Size()
	if _, err := os.Stat(filepath.Join(dir, "inputs.csv")); err != nil {
		entry.invalidReason = "missing inputs.csv"
		return entry
	}
	raw, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		entry.invalidReason = "missing meta.json"
		return entry
	}
	var meta struct {
		Duration any    `json:"duration"`
		GameName string `json:"game_name"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		entry.invalidReason = "unreadable meta.json"
		return entry
	}
	duration, ok := parseAnyFloat(meta.Duration)
	if !ok {
		entry.invalidReason = "meta.json has no duration"
		return entry
	}
	entry.duration = duration
	if strings.TrimSpace(meta.GameName) != "" {
		entry.game = strings.TrimSpace(meta.GameName)
	}
	entry.invalidReason = appraiseRecording(duration, entry.videoSize)
	return entry
}

// appraiseRecording applies the recorder's validity rules: clips shorter than
// the minimum footage window, far past the maximum, or with a file size under
// a quarter of what the recording bitrate predicts are not worth uploading.
func appraiseRecording(duration float64, videoSize int64) string {
	if duration < minFootageSeconds {
		return fmt.Sprintf("clip too short (%.1fs)", duration)
	}
	if duration > maxFootageSeconds+10 {
		return fmt.Sprintf("clip too long (%.1fs)", duration)
	}
	sizeMegabits := float64(videoSize) / (1024 * 1024) * 8
	expectedMegabits := recordingBitrateMbps * duration
	if sizeMegabits < 0.25*expectedMegabits {
		return fmt.Sprintf("video undersized (%.1f of %.1f expected Mb)", sizeMegabits, expectedMegabits)
	}
	return ""
}

// archiveRecording packs a recording directory into a temporary tar.gz and
// returns its path and size. The caller removes the file when done.
func archiveRecording(dir string) (string, int64, error) {
	tmp, err := os.CreateTemp("", "owl-upload-*.tar.gz")
	if err != nil {
		return "", 0, err
	}
	gzWriter := gzip.NewWriter(tmp)
	tarWriter := tar.NewWriter(gzWriter)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(filepath.Base(dir), rel))
		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tarWriter, file)
		return err
	})
	if walkErr == nil {
		walkErr = tarWriter.Close()
	} else {
		_ = tarWriter.Close()
	}
	if closeErr := gzWriter.Close(); walkErr == nil {
		walkErr = closeErr
	}
	if walkErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", 0, walkErr
	}
	info, err := tmp.Stat()
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, err
	}
	return tmp.Name(), info.Size(), nil
}

// ---------------------------------------------------------------------------
// Stored credentials

type storedCredentials struct {
	APIKey  string `json:"api_key"`
	UserID  string `json:"user_id"`
	SavedAt string `json:"saved_at"`
}

func defaultCredentialsPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "owl-control", "credentials.json")
	}
	return filepath.Join(base, "owl-control", "credentials.json")
}

func loadCredentials(path string) (storedCredentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return storedCredentials{}, err
	}
	var creds storedCredentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return storedCredentials{}, err
	}
	return creds, nil
}

func saveCredentials(path string, creds storedCredentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	buf, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o600)
}

// ---------------------------------------------------------------------------
// Worker

// serviceWorker consumes envelopes one at a time and produces exactly one
// outcome per envelope on its outcome channel. Handler errors become failure
// outcomes; the loop only ends when the request channel closes, after which
// the outcome channel is closed to signal termination.
type serviceWorker struct {
	client   owlClient
	requests <-chan asyncRequest
	out      chan<- tea.Msg
}

func (w serviceWorker) run() {
	defer close(w.out)
	for req := range w.requests {
		w.out <- outcomeMsg{outcome: w.handle(req)}
	}
}

func (w serviceWorker) handle(req asyncRequest) outcome {
	switch req := req.(type) {
	case validateKeyRequest:
		userID, err := w.client.validateKey(req.apiKey)
		if err != nil {
			return failureOutcome(kindValidateKey, describeAPIFailure(err))
		}
		return successOutcome(kindValidateKey, userID)
	case uploadBatchRequest:
		return w.uploadBatch(req)
	default:
		return failureOutcome(req.kind(), "unsupported request "+req.kind().String())
	}
}

// emit pushes a non-terminal progress event without ever blocking the worker
// on a slow UI; dropped events only cost a log line.
func (w serviceWorker) emit(msg tea.Msg) {
	select {
	case w.out <- msg:
	default:
	}
}

func (w serviceWorker) uploadBatch(req uploadBatchRequest) outcome {
	uploaded, failed, skipped := 0, 0, 0
	firstFailure := ""
	for _, entry := range req.entries {
		switch {
		case entry.invalidReason != "":
			skipped++
			w.emit(uploadProgressMsg{dir: entry.dir, stage: "skipped", detail: entry.invalidReason})
			continue
		case !entry.hasSession:
			skipped++
			w.emit(uploadProgressMsg{dir: entry.dir, stage: "skipped", detail: "no session manifest"})
			continue
		}
		w.emit(uploadProgressMsg{dir: entry.dir, stage: "uploading"})
		if err := w.uploadOne(req.apiKey, entry, req.deleteAfter); err != nil {
			failed++
			if firstFailure == "" {
				firstFailure = describeAPIFailure(err)
			}
			w.emit(uploadProgressMsg{dir: entry.dir, stage: "failed", detail: compactSingleLine(err.Error(), 160)})
			continue
		}
		uploaded++
		w.emit(uploadProgressMsg{dir: entry.dir, stage: "uploaded"})
	}
	if uploaded == 0 && failed > 0 {
		return failureOutcome(kindUploadBatch, fmt.Sprintf("all %d uploads failed: %s", failed, firstFailure))
	}
	return successOutcome(kindUploadBatch, fmt.Sprintf("uploaded %d · failed %d · skipped %d", uploaded, failed, skipped))
}

func (w serviceWorker) uploadOne(apiKey string, entry recordingEntry, deleteAfter bool) error {
	session, err := loadSessionFromDirectory(entry.dir)
	if err != nil {
		return fmt.Errorf("session manifest: %w", err)
	}
	token, err := session.uploadToken(apiKey)
	if err != nil {
		return err
	}
	archivePath, size, err := archiveRecording(entry.dir)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer os.Remove(archivePath)

	grant, err := w.client.createUpload(apiKey, createUploadBody{
		Filename:      filepath.Base(entry.dir) + ".tar.gz",
		Size:          size,
		Tags:          []string{entry.game},
		SessionTokens: []uploadToken{token},
	})
	if err != nil {
		return err
	}
	if err := w.client.putArchive(grant.UploadURL, archivePath, size); err != nil {
		return err
	}
	if err := w.client.completeUpload(apiKey, grant.UploadID); err != nil {
		return err
	}
	if deleteAfter {
		if err := os.RemoveAll(entry.dir); err != nil {
			w.emit(uploadProgressMsg{dir: entry.dir, stage: "cleanup-failed", detail: compactSingleLine(err.Error(), 120)})
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// TUI

type screenID int

const (
	screenLogin screenID = iota
	screenHome
)

type outcomeMsg struct {
	outcome outcome
}

type uploadProgressMsg struct {
	dir    string
	stage  string
	detail string
}

type workerStoppedMsg struct{}

type savedCredentialMsg struct {
	creds storedCredentials
}

type scanDoneMsg struct {
	entries []recordingEntry
	err     error
}

type tickMsg time.Time

type uiTheme struct {
	title       lipgloss.Style
	subtitle    lipgloss.Style
	header      lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	inputPanel  lipgloss.Style
	helpText    lipgloss.Style
	okMark      lipgloss.Style
	warnMark    lipgloss.Style
}

func newTheme() uiTheme {
	amber := lipgloss.Color("#ffb454")
	blue := lipgloss.Color("#59c2ff")
	mint := lipgloss.Color("#aad94c")
	red := lipgloss.Color("#f07178")
	text := lipgloss.Color("#e6e1cf")
	muted := lipgloss.Color("#8a8f98")
	panelBg := lipgloss.Color("#10141c")

	return uiTheme{
		title:    lipgloss.NewStyle().Foreground(text).Bold(true),
		subtitle: lipgloss.NewStyle().Foreground(muted),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().Foreground(mint).Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		helpText: lipgloss.NewStyle().Foreground(muted),
		okMark:   lipgloss.NewStyle().Foreground(mint).Bold(true),
		warnMark: lipgloss.NewStyle().Foreground(amber).Bold(true),
	}
}

type model struct {
	cfg      appConfig
	dispatch *dispatcher

	serviceMsgs chan tea.Msg
	workerLost  bool

	screen screenID
	apiKey string
	userID string

	recordings []recordingEntry
	scanning   bool
	lastScan   time.Time

	statusLine  string
	logs        []string
	quitConfirm bool

	width  int
	height int

	keyInput       textinput.Model
	recordingsPane viewport.Model
	spinner        spinner.Model

	theme uiTheme
}

func newModel(cfg appConfig) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "sk_..."
	input.CharLimit = 200
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '•'
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#aad94c"))

	pane := viewport.New(0, 0)
	pane.MouseWheelEnabled = true

	dispatch := newDispatcher(cfg.queueSize)
	serviceMsgs := make(chan tea.Msg, serviceMsgBuffer)
	worker := serviceWorker{
		client:   owlClient{apiBase: cfg.apiBase, timeout: cfg.requestTimeout, uploadTimeout: cfg.uploadTimeout},
		requests: dispatch.requests,
		out:      serviceMsgs,
	}
	go worker.run()

	return model{
		cfg:            cfg,
		dispatch:       dispatch,
		serviceMsgs:    serviceMsgs,
		screen:         screenLogin,
		statusLine:     "enter your API key",
		logs:           []string{},
		keyInput:       input,
		recordingsPane: pane,
		spinner:        sp,
		theme:          newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitServiceMsg(m.serviceMsgs),
		m.loadCredentialsCmd(),
		tickEvery(m.cfg.pollInterval),
	)
}

// waitServiceMsg blocks (in its own goroutine, never the frame loop) until
// the worker produces the next message. A closed channel means the worker
// terminated.
func waitServiceMsg(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return workerStoppedMsg{}
		}
		return msg
	}
}

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(maxDuration(time.Second, interval), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) loadCredentialsCmd() tea.Cmd {
	path := m.cfg.credentialsFile
	return func() tea.Msg {
		creds, err := loadCredentials(path)
		if err != nil || strings.TrimSpace(creds.APIKey) == "" {
			return nil
		}
		return savedCredentialMsg{creds: creds}
	}
}

func (m model) scanCmd() tea.Cmd {
	root := m.cfg.dataRoot
	return func() tea.Msg {
		entries, err := scanRecordings(root)
		return scanDoneMsg{entries: entries, err: err}
	}
}

// submitKey flips the validate guard and hands the envelope to the worker;
// a duplicate submission while one is pending is a silent no-op.
func (m *model) submitKey() tea.Cmd {
	key := strings.TrimSpace(m.keyInput.Value())
	if key == "" {
		m.statusLine = "enter an API key first"
		return nil
	}
	accepted, synthesized := m.dispatch.submit(validateKeyRequest{apiKey: key})
	if !accepted {
		return nil
	}
	m.apiKey = key
	m.statusLine = "validating API key..."
	if synthesized != nil {
		return m.applyOutcome(*synthesized)
	}
	return nil
}

func (m *model) submitUpload() tea.Cmd {
	uploadable := 0
	for _, entry := range m.recordings {
		if entry.uploadable() {
			uploadable++
		}
	}
	if uploadable == 0 {
		m.statusLine = "nothing uploadable · record a session first"
		return nil
	}
	entries := make([]recordingEntry, len(m.recordings))
	copy(entries, m.recordings)
	accepted, synthesized := m.dispatch.submit(uploadBatchRequest{
		apiKey:      m.apiKey,
		entries:     entries,
		deleteAfter: m.cfg.deleteAfterUpload,
	})
	if !accepted {
		m.statusLine = "upload already in progress"
		return nil
	}
	m.statusLine = fmt.Sprintf("uploading %d recordings...", uploadable)
	if synthesized != nil {
		return m.applyOutcome(*synthesized)
	}
	return nil
}

// applyOutcome reconciles a terminal outcome into UI state: the slot is
// (re-)resolved and the screen reacts. Called for worker-delivered and
// locally synthesized outcomes alike.
func (m *model) applyOutcome(out outcome) tea.Cmd {
	m.dispatch.resolve(out)
	switch out.kind {
	case kindValidateKey:
		if out.failed() {
			m.statusLine = "validation failed"
			m.appendLog("key validation: " + out.failure)
			return nil
		}
		m.userID = out.payload
		m.screen = screenHome
		m.keyInput.Blur()
		m.statusLine = "signed in as " + out.payload
		if err := saveCredentials(m.cfg.credentialsFile, storedCredentials{
			APIKey:  m.apiKey,
			UserID:  out.payload,
			SavedAt: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			m.appendLog("credentials not saved: " + compactSingleLine(err.Error(), 120))
		}
		m.scanning = true
		return m.scanCmd()
	case kindUploadBatch:
		if out.failed() {
			m.statusLine = "upload failed"
			m.appendLog("upload: " + out.failure)
		} else {
			m.statusLine = out.payload
			m.appendLog("upload: " + out.payload)
		}
		m.scanning = true
		return m.scanCmd()
	}
	return nil
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, time.Now().Format("15:04:05")+" "+trimmed)
	if len(m.logs) > logKeep {
		m.logs = m.logs[len(m.logs)-logKeep:]
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case outcomeMsg:
		if cmd := m.applyOutcome(msg.outcome); cmd != nil {
			cmds = append(cmds, cmd)
		}
		m.renderPanes()
		cmds = append(cmds, waitServiceMsg(m.serviceMsgs))
	case uploadProgressMsg:
		detail := msg.stage
		if msg.detail != "" {
			detail += ": " + msg.detail
		}
		m.appendLog(filepath.Base(msg.dir) + " · " + detail)
		m.statusLine = filepath.Base(msg.dir) + " " + msg.stage
		cmds = append(cmds, waitServiceMsg(m.serviceMsgs))
	case workerStoppedMsg:
		m.workerLost = true
		for _, out := range m.dispatch.markWorkerLost() {
			if cmd := m.applyOutcome(out); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		m.appendLog("background worker stopped")
	case savedCredentialMsg:
		if m.screen == screenLogin && strings.TrimSpace(m.keyInput.Value()) == "" {
			m.keyInput.SetValue(msg.creds.APIKey)
			m.statusLine = "validating saved API key..."
			if cmd := m.submitKey(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	case scanDoneMsg:
		m.scanning = false
		if msg.err != nil {
			m.appendLog("scan failed: " + compactSingleLine(msg.err.Error(), 160))
			break
		}
		m.recordings = msg.entries
		m.lastScan = time.Now()
		m.renderPanes()
	case tickMsg:
		uploadInFlight, _ := m.dispatch.read(kindUploadBatch)
		if m.screen == screenHome && !m.scanning && !uploadInFlight {
			m.scanning = true
			cmds = append(cmds, m.scanCmd())
		}
		cmds = append(cmds, tickEvery(m.cfg.pollInterval))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case tea.MouseMsg:
		if m.screen == screenHome {
			var cmd tea.Cmd
			m.recordingsPane, cmd = m.recordingsPane.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.dispatch.shutdown()
			return m, tea.Quit
		}
		if m.quitConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				m.dispatch.shutdown()
				return m, tea.Quit
			case "n", "N", "esc":
				m.quitConfirm = false
				m.statusLine = "quit canceled"
			}
			return m, tea.Batch(cmds...)
		}
		switch m.screen {
		case screenLogin:
			switch msg.String() {
			case "enter":
				if cmd := m.submitKey(); cmd != nil {
					cmds = append(cmds, cmd)
				}
				return m, tea.Batch(cmds...)
			case "esc":
				m.quitConfirm = true
				return m, tea.Batch(cmds...)
			}
			var cmd tea.Cmd
			m.keyInput, cmd = m.keyInput.Update(msg)
			cmds = append(cmds, cmd)
		case screenHome:
			switch msg.String() {
			case "u":
				if cmd := m.submitUpload(); cmd != nil {
					cmds = append(cmds, cmd)
				}
			case "r":
				if !m.scanning {
					m.scanning = true
					m.statusLine = "rescanning " + m.cfg.dataRoot
					cmds = append(cmds, m.scanCmd())
				}
			case "esc", "q":
				m.quitConfirm = true
			case "up", "k":
				m.recordingsPane.LineUp(2)
			case "down", "j":
				m.recordingsPane.LineDown(2)
			case "pgup", "ctrl+b":
				m.recordingsPane.LineUp(8)
			case "pgdown", "ctrl+f":
				m.recordingsPane.LineDown(8)
			case "home":
				m.recordingsPane.GotoTop()
			case "end":
				m.recordingsPane.GotoBottom()
			}
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) resize() {
	paneWidth := maxInt(20, m.width-6)
	paneHeight := maxInt(4, m.height-11)
	m.recordingsPane.Width = paneWidth
	m.recordingsPane.Height = paneHeight
}

func (m *model) renderPanes() {
	var b strings.Builder
	if len(m.recordings) == 0 {
		b.WriteString("no recordings found under " + m.cfg.dataRoot + "\n")
		b.WriteString("record a gameplay session, then press r to rescan")
	}
	for _, entry := range m.recordings {
		mark := m.theme.okMark.Render("●")
		note := "ready"
		switch {
		case entry.invalidReason != "":
			mark = m.theme.warnMark.Render("○")
			note = entry.invalidReason
		case !entry.hasSession:
			mark = m.theme.warnMark.Render("○")
			note = "no session manifest"
		}
		fmt.Fprintf(&b, "%s %-28s %8s %10s  %s\n",
			mark,
			truncate(entry.game, 28),
			formatSeconds(entry.duration),
			formatBytes(entry.videoSize),
			note,
		)
	}
	m.recordingsPane.SetContent(b.String())
}

func (m model) View() string {
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.homeView()
}

func (m model) loginView() string {
	t := m.theme
	inFlight, last := m.dispatch.read(kindValidateKey)

	lines := []string{
		t.title.Render("Welcome to OWL Control"),
		"",
		t.subtitle.Render("Please enter your API key to continue"),
		"",
		t.inputPanel.Render(m.keyInput.View()),
		"",
		t.helpText.Render("Don't have an API key? Sign up at " + signUpURL),
	}
	if !inFlight && last != nil && last.failed() {
		lines = append(lines, "", t.errorStatus.Render(last.failure))
	}
	if m.quitConfirm {
		lines = append(lines, "", t.errorStatus.Render("quit? y/n"))
	} else if inFlight {
		lines = append(lines, "", t.status.Render(m.spinner.View()+" Validating..."))
	} else {
		lines = append(lines, "", t.helpText.Render("enter · continue    esc · quit"))
	}
	panel := t.panel.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
	if m.width == 0 || m.height == 0 {
		return panel
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
}

func (m model) homeView() string {
	t := m.theme
	uploadInFlight, _ := m.dispatch.read(kindUploadBatch)

	header := t.header.Render(fmt.Sprintf("OWL Control · %s · %s", m.userID, m.cfg.apiBase))
	title := t.panelTitle.Render(fmt.Sprintf("Recordings · %s", m.cfg.dataRoot))
	body := t.panel.Render(lipgloss.JoinVertical(lipgloss.Left, title, m.recordingsPane.View()))

	status := m.statusLine
	if uploadInFlight || m.scanning {
		status = m.spinner.View() + " " + status
	}
	statusLine := t.status.Render(status)
	if m.quitConfirm {
		statusLine = t.errorStatus.Render("quit while uploads may be running? y/n")
	}

	footerLines := []string{statusLine}
	start := maxInt(0, len(m.logs)-footerLogLines)
	for _, line := range m.logs[start:] {
		footerLines = append(footerLines, t.helpText.Render(line))
	}
	footerLines = append(footerLines, t.helpText.Render("u upload · r rescan · ↑/↓ scroll · esc quit"))
	footer := t.footer.Render(lipgloss.JoinVertical(lipgloss.Left, footerLines...))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// ---------------------------------------------------------------------------
// Configuration

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.apiBase, "api-base", envOr("OWL_API_BASE", defaultAPIBase), "OWL Control API base URL")
	flag.StringVar(&cfg.dataRoot, "data-root", envOr("OWL_DATA_ROOT", defaultDataRoot), "Directory holding recorded gameplay sessions")
	flag.StringVar(&cfg.credentialsFile, "credentials-file", envOr("OWL_CREDENTIALS_FILE", ""), "Path of the stored API credential (defaults under the user config dir)")
	requestTimeoutSeconds := envOrInt("OWL_REQUEST_TIMEOUT", 30)
	flag.IntVar(&requestTimeoutSeconds, "request-timeout", requestTimeoutSeconds, "Per-request API timeout seconds")
	uploadTimeoutSeconds := envOrInt("OWL_UPLOAD_TIMEOUT", 600)
	flag.IntVar(&uploadTimeoutSeconds, "upload-timeout", uploadTimeoutSeconds, "Archive upload timeout seconds")
	flag.IntVar(&cfg.queueSize, "async-queue", envOrInt("OWL_ASYNC_QUEUE", 8), "Async request queue depth")
	pollSeconds := envOrInt("OWL_POLL_INTERVAL", 20)
	flag.IntVar(&pollSeconds, "poll-interval", pollSeconds, "Recording rescan interval seconds")
	flag.BoolVar(&cfg.deleteAfterUpload, "delete-after-upload", envOrBool("OWL_DELETE_UPLOADED", false), "Delete recording directories after a successful upload")
	flag.BoolVar(&cfg.altScreen, "alt-screen", true, "Use alternate screen buffer")
	flag.Parse()

	cfg.requestTimeout = time.Duration(clampInt(requestTimeoutSeconds, 1, 120)) * time.Second
	cfg.uploadTimeout = time.Duration(clampInt(uploadTimeoutSeconds, 30, 3600)) * time.Second
	cfg.queueSize = clampInt(cfg.queueSize, 1, 64)
	cfg.pollInterval = time.Duration(clampInt(pollSeconds, 2, 600)) * time.Second
	if resolved, err := filepath.Abs(cfg.dataRoot); err == nil {
		cfg.dataRoot = resolved
	}
	if strings.TrimSpace(cfg.credentialsFile) == "" {
		cfg.credentialsFile = defaultCredentialsPath()
	}
	return cfg
}

// ---------------------------------------------------------------------------
// Small helpers

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseAnyFloat(value any) (float64, bool) {
	switch value := value.(type) {
	case float64:
		return value, true
	case json.Number:
		parsed, err := value.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func compactSingleLine(text string, limit int) string {
	fields := strings.Fields(text)
	joined := strings.Join(fields, " ")
	return truncate(joined, limit)
}

func truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	if limit <= 3 {
		return text[:limit]
	}
	return text[:limit-3] + "..."
}

func formatSeconds(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func formatBytes(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func main() {
	cfg := parseFlags()
	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(newModel(cfg), opts...)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "owl-tui fatal error: %v\n", err)
		os.Exit(1)
	}
}
