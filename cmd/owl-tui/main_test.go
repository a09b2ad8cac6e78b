package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestDispatcherSuppressesDuplicateSubmit(t *testing.T) {
	d := newDispatcher(4)
	accepted, synthesized := d.submit(validateKeyRequest{apiKey: "sk_x"})
	if !accepted || synthesized != nil {
		t.Fatalf("expected first submit to enter the queue")
	}
	accepted, _ = d.submit(validateKeyRequest{apiKey: "sk_x"})
	if accepted {
		t.Fatalf("expected duplicate submit to be suppressed while pending")
	}
	if got := len(d.requests); got != 1 {
		t.Fatalf("expected exactly one envelope in the channel, got %d", got)
	}
}

func TestDispatcherRoundTripOutcome(t *testing.T) {
	d := newDispatcher(4)
	if _, synthesized := d.submit(validateKeyRequest{apiKey: "sk_good"}); synthesized != nil {
		t.Fatalf("unexpected synthesized outcome: %+v", *synthesized)
	}
	inFlight, last := d.read(kindValidateKey)
	if !inFlight || last != nil {
		t.Fatalf("expected pending slot with no outcome, got inFlight=%v last=%v", inFlight, last)
	}
	d.resolve(successOutcome(kindValidateKey, "user_42"))
	inFlight, last = d.read(kindValidateKey)
	if inFlight {
		t.Fatalf("expected guard cleared after resolve")
	}
	if last == nil || last.failed() || last.payload != "user_42" {
		t.Fatalf("unexpected outcome after resolve: %v", last)
	}
}

func TestDispatcherResubmitDiscardsStaleOutcome(t *testing.T) {
	d := newDispatcher(4)
	d.submit(validateKeyRequest{apiKey: "sk_one"})
	d.resolve(failureOutcome(kindValidateKey, "invalid key"))

	accepted, _ := d.submit(validateKeyRequest{apiKey: "sk_two"})
	if !accepted {
		t.Fatalf("expected resubmit after resolve to be accepted")
	}
	inFlight, last := d.read(kindValidateKey)
	if !inFlight || last != nil {
		t.Fatalf("expected stale outcome discarded on resubmit, got inFlight=%v last=%v", inFlight, last)
	}
	d.resolve(successOutcome(kindValidateKey, "user_42"))
	_, last = d.read(kindValidateKey)
	if last == nil || last.payload != "user_42" || last.failed() {
		t.Fatalf("expected only the second result, got %v", last)
	}
}

func TestDispatcherDuplicateResolveIsIdempotent(t *testing.T) {
	d := newDispatcher(4)
	d.submit(validateKeyRequest{apiKey: "sk_x"})
	out := successOutcome(kindValidateKey, "user_42")
	d.resolve(out)
	d.resolve(out)
	inFlight, last := d.read(kindValidateKey)
	if inFlight || last == nil || last.payload != "user_42" {
		t.Fatalf("expected record-replace semantics, got inFlight=%v last=%v", inFlight, last)
	}
}

func TestDispatcherKindsAreIsolated(t *testing.T) {
	d := newDispatcher(4)
	d.submit(validateKeyRequest{apiKey: "sk_x"})
	accepted, synthesized := d.submit(uploadBatchRequest{apiKey: "sk_x"})
	if !accepted || synthesized != nil {
		t.Fatalf("expected a pending validate not to block an upload submit")
	}
	if inFlight, _ := d.read(kindUploadBatch); !inFlight {
		t.Fatalf("expected upload slot pending")
	}
	if inFlight, _ := d.read(kindValidateKey); !inFlight {
		t.Fatalf("expected validate slot still pending")
	}
}

func TestDispatcherFullQueueSynthesizesOverloadFailure(t *testing.T) {
	d := newDispatcher(1)
	d.submit(validateKeyRequest{apiKey: "sk_x"})
	accepted, synthesized := d.submit(uploadBatchRequest{apiKey: "sk_x"})
	if !accepted {
		t.Fatalf("expected overloaded submit to resolve, not be suppressed")
	}
	if synthesized == nil || synthesized.failure != failureOverloaded {
		t.Fatalf("expected synthesized overload failure, got %v", synthesized)
	}
	inFlight, last := d.read(kindUploadBatch)
	if inFlight || last == nil || last.failure != failureOverloaded {
		t.Fatalf("expected upload slot resolved with overload failure, got inFlight=%v last=%v", inFlight, last)
	}
	if got := len(d.requests); got != 1 {
		t.Fatalf("expected the overloaded envelope not to enter the channel, got %d queued", got)
	}
}

func TestDispatcherSubmitAfterShutdown(t *testing.T) {
	d := newDispatcher(4)
	d.shutdown()
	accepted, synthesized := d.submit(validateKeyRequest{apiKey: "sk_x"})
	if !accepted {
		t.Fatalf("expected submit after shutdown to resolve immediately")
	}
	if synthesized == nil || synthesized.failure != failureWorkerUnavailable {
		t.Fatalf("expected worker-unavailable failure, got %v", synthesized)
	}
}

func TestDispatcherWorkerLossResolvesPendingSlots(t *testing.T) {
	d := newDispatcher(4)
	d.submit(validateKeyRequest{apiKey: "sk_x"})
	d.submit(uploadBatchRequest{apiKey: "sk_x"})
	synthesized := d.markWorkerLost()
	if len(synthesized) != 2 {
		t.Fatalf("expected both pending slots synthesized, got %d", len(synthesized))
	}
	for _, kind := range []requestKind{kindValidateKey, kindUploadBatch} {
		inFlight, last := d.read(kind)
		if inFlight {
			t.Fatalf("expected %s slot no longer pending", kind)
		}
		if last == nil || last.failure != failureWorkerUnavailable {
			t.Fatalf("expected %s slot resolved to worker-unavailable, got %v", kind, last)
		}
	}
}

func waitServiceMessage(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			return workerStoppedMsg{}
		}
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for worker message")
		return nil
	}
}

func waitOutcome(t *testing.T, ch <-chan tea.Msg) outcome {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("worker channel closed before an outcome arrived")
			}
			if out, isOutcome := msg.(outcomeMsg); isOutcome {
				return out.outcome
			}
		case <-deadline:
			t.Fatalf("timed out waiting for an outcome")
		}
	}
}

func startWorker(t *testing.T, apiBase string, queue int) (*dispatcher, chan tea.Msg) {
	t.Helper()
	d := newDispatcher(queue)
	out := make(chan tea.Msg, serviceMsgBuffer)
	worker := serviceWorker{
		client:   owlClient{apiBase: apiBase, timeout: 5 * time.Second, uploadTimeout: 5 * time.Second},
		requests: d.requests,
		out:      out,
	}
	go worker.run()
	return d, out
}

func newValidationServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/users/me" {
			http.NotFound(w, r)
			return
		}
		switch r.Header.Get("X-API-Key") {
		case "sk_good":
			fmt.Fprint(w, `{"user_id":"user_42"}`)
		default:
			http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
		}
	}))
}

func TestWorkerValidateKeySuccess(t *testing.T) {
	srv := newValidationServer(t)
	defer srv.Close()

	d, out := startWorker(t, srv.URL, 4)
	defer d.shutdown()

	d.submit(validateKeyRequest{apiKey: "sk_good"})
	got := waitOutcome(t, out)
	if got.kind != kindValidateKey {
		t.Fatalf("unexpected outcome kind: %s", got.kind)
	}
	if got.failed() || got.payload != "user_42" {
		t.Fatalf("expected success with user_42, got %+v", got)
	}
}

func TestWorkerValidateKeyFailure(t *testing.T) {
	srv := newValidationServer(t)
	defer srv.Close()

	d, out := startWorker(t, srv.URL, 4)
	defer d.shutdown()

	d.submit(validateKeyRequest{apiKey: "sk_bad"})
	got := waitOutcome(t, out)
	if !got.failed() {
		t.Fatalf("expected failure outcome, got %+v", got)
	}
	if got.failure != "invalid API key" {
		t.Fatalf("expected the domain failure message, got %q", got.failure)
	}
}

func TestWorkerSurvivesHandlerFailures(t *testing.T) {
	srv := newValidationServer(t)
	defer srv.Close()

	d, out := startWorker(t, srv.URL, 4)
	defer d.shutdown()

	d.submit(validateKeyRequest{apiKey: "sk_bad"})
	first := waitOutcome(t, out)
	if !first.failed() {
		t.Fatalf("expected the first request to fail")
	}
	d.resolve(first)

	d.submit(validateKeyRequest{apiKey: "sk_good"})
	second := waitOutcome(t, out)
	if second.failed() || second.payload != "user_42" {
		t.Fatalf("expected the worker to keep serving after a failure, got %+v", second)
	}
}

func TestWorkerShutdownClosesOutcomeChannel(t *testing.T) {
	srv := newValidationServer(t)
	defer srv.Close()

	d, out := startWorker(t, srv.URL, 4)
	d.submit(validateKeyRequest{apiKey: "sk_good"})
	d.shutdown()

	// The queued envelope is drained and answered, then the channel closes.
	got := waitOutcome(t, out)
	if got.payload != "user_42" {
		t.Fatalf("expected the queued envelope to be answered before shutdown, got %+v", got)
	}
	if _, ok := waitServiceMessage(t, out).(workerStoppedMsg); !ok {
		t.Fatalf("expected the outcome channel to close after drain")
	}
}

func TestClassifyAPIError(t *testing.T) {
	class := classifyAPIError(&apiError{status: http.StatusUnauthorized, body: "nope"})
	if class.Code != "invalid_key" || !class.Domain {
		t.Fatalf("expected 401 to classify as domain invalid_key, got %+v", class)
	}
	class = classifyAPIError(errors.New("dial tcp 127.0.0.1:1: connection refused"))
	if class.Code != "endpoint_unreachable" || class.Domain {
		t.Fatalf("expected transport classification, got %+v", class)
	}
	class = classifyAPIError(errors.New("context deadline exceeded"))
	if class.Code != "timeout" {
		t.Fatalf("expected timeout classification, got %+v", class)
	}
	if describeAPIFailure(&apiError{status: http.StatusForbidden}) != "invalid API key" {
		t.Fatalf("expected 403 described as an invalid key")
	}
}

func writeRecordingFixture(t *testing.T, dir string, duration float64, videoBytes int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "video.mp4"), bytes.Repeat([]byte{0xab}, videoBytes), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inputs.csv"), []byte("ts,key,value\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	meta := fmt.Sprintf(`{"duration": %.1f, "game_name": %q}`, duration, filepath.Base(dir))
	if err := os.WriteFile(filepath.Join(dir, "meta.json"), []byte(meta), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
}

func completeSessionFixture(t *testing.T, dir string) *recordingSession {
	t.Helper()
	session, err := newRecordingSession(filepath.Base(dir), dir)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.complete(filepath.Join(dir, "video.mp4"), filepath.Join(dir, "inputs.csv")); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	return session
}

func TestScanRecordingsFlagsInvalidClips(t *testing.T) {
	root := t.TempDir()
	// 40s at 2 mbps expects 80 Mb; a quarter of that is 2.5 MiB-ish.
	writeRecordingFixture(t, filepath.Join(root, "good-run"), 40, 4*1024*1024)
	writeRecordingFixture(t, filepath.Join(root, "short-run"), 5, 1024)
	writeRecordingFixture(t, filepath.Join(root, "starved-run"), 40, 64*1024)
	if err := os.MkdirAll(filepath.Join(root, "not-a-recording"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	entries, err := scanRecordings(root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(entries))
	}
	byGame := map[string]recordingEntry{}
	for _, entry := range entries {
		byGame[entry.game] = entry
	}
	if reason := byGame["good-run"].invalidReason; reason != "" {
		t.Fatalf("expected good-run valid, got %q", reason)
	}
	if reason := byGame["short-run"].invalidReason; !strings.Contains(reason, "too short") {
		t.Fatalf("expected short-run flagged too short, got %q", reason)
	}
	if reason := byGame["starved-run"].invalidReason; !strings.Contains(reason, "undersized") {
		t.Fatalf("expected starved-run flagged undersized, got %q", reason)
	}
}

func TestScanRecordingsMissingRootIsEmpty(t *testing.T) {
	entries, err := scanRecordings(filepath.Join(t.TempDir(), "never-created"))
	if err != nil {
		t.Fatalf("expected a missing root to scan clean, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestSessionManifestRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "roundtrip")
	writeRecordingFixture(t, dir, 40, 2048)
	created := completeSessionFixture(t, dir)

	loaded, err := loadSessionFromDirectory(dir)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.sessionID != created.sessionID {
		t.Fatalf("expected session id %q, got %q", created.sessionID, loaded.sessionID)
	}
	if !loaded.completed {
		t.Fatalf("expected loaded session to be completed")
	}
	if len(loaded.files) != 2 {
		t.Fatalf("expected 2 manifest files, got %d", len(loaded.files))
	}
	if loaded.files["video.mp4"].Hash != created.files["video.mp4"].Hash {
		t.Fatalf("expected file hashes to survive the round trip")
	}
}

func TestLoadSessionRejectsTamperedManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tampered")
	writeRecordingFixture(t, dir, 40, 2048)
	completeSessionFixture(t, dir)

	path := filepath.Join(dir, sessionFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read session record: %v", err)
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("unmarshal session record: %v", err)
	}
	record.Manifest.Session.GameName = "forged"
	forged, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal forged record: %v", err)
	}
	if err := os.WriteFile(path, forged, 0o644); err != nil {
		t.Fatalf("write forged record: %v", err)
	}

	if _, err := loadSessionFromDirectory(dir); err == nil {
		t.Fatalf("expected a tampered manifest to be rejected")
	}
}

func TestUploadTokenRequiresCompletedSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pending")
	writeRecordingFixture(t, dir, 40, 2048)
	session, err := newRecordingSession("pending", dir)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := session.uploadToken("sk_good"); err == nil {
		t.Fatalf("expected token generation to fail before completion")
	}

	if err := session.complete(filepath.Join(dir, "video.mp4"), filepath.Join(dir, "inputs.csv")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	token, err := session.uploadToken("sk_good")
	if err != nil {
		t.Fatalf("upload token: %v", err)
	}
	if token.Signature == "" || token.SessionID != session.sessionID {
		t.Fatalf("unexpected token: %+v", token)
	}
	if len(token.Claim.Files) != 2 {
		t.Fatalf("expected the claim to cover both files, got %d", len(token.Claim.Files))
	}
}

func TestArchiveRecordingProducesTarball(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive-me")
	writeRecordingFixture(t, dir, 40, 2048)

	path, size, err := archiveRecording(dir)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	defer os.Remove(path)
	if size <= 0 {
		t.Fatalf("expected a non-empty archive, got %d bytes", size)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat archive: %v", err)
	}
	if info.Size() != size {
		t.Fatalf("expected reported size %d to match the file, got %d", size, info.Size())
	}
}

func TestWorkerUploadBatchEndToEnd(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "upload-run")
	writeRecordingFixture(t, dir, 40, 4*1024*1024)
	completeSessionFixture(t, dir)

	var server *httptest.Server
	putReceived := false
	completed := false
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/uploads", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "sk_good" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		var body createUploadBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.SessionTokens) != 1 {
			http.Error(w, "bad presign request", http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"upload_id":"u1","upload_url":%q}`, server.URL+"/put/u1")
	})
	mux.HandleFunc("/put/u1", func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		putReceived = len(payload) > 0
	})
	mux.HandleFunc("/v1/uploads/u1/complete", func(w http.ResponseWriter, r *http.Request) {
		completed = true
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	d, out := startWorker(t, server.URL, 4)
	defer d.shutdown()

	entries, err := scanRecordings(filepath.Dir(dir))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	d.submit(uploadBatchRequest{apiKey: "sk_good", entries: entries})

	got := waitOutcome(t, out)
	if got.kind != kindUploadBatch || got.failed() {
		t.Fatalf("expected upload batch success, got %+v", got)
	}
	if !strings.Contains(got.payload, "uploaded 1") {
		t.Fatalf("expected one uploaded recording, got %q", got.payload)
	}
	if !putReceived || !completed {
		t.Fatalf("expected the archive PUT and completion call, got put=%v complete=%v", putReceived, completed)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected the recording kept without delete-after-upload: %v", err)
	}
}

func TestWorkerUploadBatchSkipsInvalidAndUnsessioned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no API call expected for skipped entries, got %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	d, out := startWorker(t, srv.URL, 4)
	defer d.shutdown()

	d.submit(uploadBatchRequest{apiKey: "sk_good", entries: []recordingEntry{
		{dir: "/tmp/a", invalidReason: "clip too short (5.0s)"},
		{dir: "/tmp/b"}, // no session manifest
	}})
	got := waitOutcome(t, out)
	if got.failed() {
		t.Fatalf("expected skip-only batches to succeed, got %+v", got)
	}
	if !strings.Contains(got.payload, "skipped 2") {
		t.Fatalf("expected both entries skipped, got %q", got.payload)
	}
}

func TestParseAnyFloat(t *testing.T) {
	if value, ok := parseAnyFloat(12.5); !ok || value != 12.5 {
		t.Fatalf("expected float passthrough, got %v %v", value, ok)
	}
	if value, ok := parseAnyFloat("34.25"); !ok || value != 34.25 {
		t.Fatalf("expected string parse, got %v %v", value, ok)
	}
	if _, ok := parseAnyFloat([]string{"nope"}); ok {
		t.Fatalf("expected unsupported types to fail")
	}
}

func TestAppraiseRecording(t *testing.T) {
	if reason := appraiseRecording(5, 10*1024*1024); !strings.Contains(reason, "too short") {
		t.Fatalf("expected short clips flagged, got %q", reason)
	}
	if reason := appraiseRecording(maxFootageSeconds+60, 1<<30); !strings.Contains(reason, "too long") {
		t.Fatalf("expected overlong clips flagged, got %q", reason)
	}
	if reason := appraiseRecording(60, 64*1024); !strings.Contains(reason, "undersized") {
		t.Fatalf("expected starved bitrate flagged, got %q", reason)
	}
	if reason := appraiseRecording(60, 8*1024*1024); reason != "" {
		t.Fatalf("expected a healthy clip to pass, got %q", reason)
	}
}
