package media

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func buildBox(boxType string, payload []byte) []byte {
	box := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(box[0:4], uint32(len(box)))
	copy(box[4:8], boxType)
	copy(box[8:], payload)
	return box
}

func buildMP4(timescale, duration uint32) []byte {
	mvhdPayload := make([]byte, 100)
	// version 0, flags 0
	binary.BigEndian.PutUint32(mvhdPayload[12:16], timescale)
	binary.BigEndian.PutUint32(mvhdPayload[16:20], duration)
	moov := buildBox("moov", buildBox("mvhd", mvhdPayload))
	ftyp := buildBox("ftyp", []byte("isom0000"))
	return append(ftyp, moov...)
}

func TestProbeMP4Duration(t *testing.T) {
	if got := probeMP4Duration(buildMP4(1000, 95_500)); got != 95 {
		t.Fatalf("duration = %d, want 95", got)
	}
	if got := probeMP4Duration(buildMP4(0, 1000)); got != 0 {
		t.Fatalf("zero timescale: duration = %d, want 0", got)
	}
	if got := probeMP4Duration([]byte("not an mp4")); got != 0 {
		t.Fatalf("garbage input: duration = %d, want 0", got)
	}
	if got := probeMP4Duration(nil); got != 0 {
		t.Fatalf("nil input: duration = %d, want 0", got)
	}
}

func TestProbeMP4DurationVersion1(t *testing.T) {
	mvhdPayload := make([]byte, 112)
	mvhdPayload[0] = 1
	binary.BigEndian.PutUint32(mvhdPayload[20:24], 600)
	binary.BigEndian.PutUint64(mvhdPayload[24:32], 600*42)
	moov := buildBox("moov", buildBox("mvhd", mvhdPayload))
	if got := probeMP4Duration(moov); got != 42 {
		t.Fatalf("duration = %d, want 42", got)
	}
}

func TestUploadSignsAndBuildsURL(t *testing.T) {
	var captured *http.Request
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(context.Background())
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		body = payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}

	store := NewStore(Config{
		Endpoint:       parsed.Host,
		Bucket:         "media",
		AccessKey:      "AKIDEXAMPLE",
		SecretKey:      "secret",
		PublicEndpoint: "https://cdn.example.com",
		Prefix:         "cliptide",
	})
	if !store.Enabled() {
		t.Fatal("store should be enabled")
	}

	dir := t.TempDir()
	localPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(localPath, buildMP4(1000, 12_000), 0o600); err != nil {
		t.Fatalf("write temp upload: %v", err)
	}

	asset, err := store.Upload(context.Background(), "videos", localPath, "video/mp4")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.DurationSeconds != 12 {
		t.Fatalf("DurationSeconds = %d, want 12", asset.DurationSeconds)
	}
	if !strings.HasPrefix(asset.URL, "https://cdn.example.com/cliptide/videos/") {
		t.Fatalf("unexpected public URL %q", asset.URL)
	}
	if !strings.HasSuffix(asset.URL, ".mp4") {
		t.Fatalf("expected extension preserved in %q", asset.URL)
	}

	if captured == nil {
		t.Fatal("no request reached the server")
	}
	if captured.Method != http.MethodPut {
		t.Fatalf("method = %s, want PUT", captured.Method)
	}
	if !strings.HasPrefix(captured.URL.Path, "/media/cliptide/videos/") {
		t.Fatalf("unexpected object path %q", captured.URL.Path)
	}
	authorization := captured.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/") {
		t.Fatalf("unexpected Authorization header %q", authorization)
	}
	if captured.Header.Get("x-amz-content-sha256") == "" {
		t.Fatal("missing payload hash header")
	}
	if len(body) == 0 {
		t.Fatal("empty upload body")
	}

	// The local file stays in place; the handler owns its removal.
	if _, err := os.Stat(localPath); err != nil {
		t.Fatalf("local file removed by upload: %v", err)
	}
}

func TestUploadDisabledWithoutConfig(t *testing.T) {
	store := NewStore(Config{})
	if store.Enabled() {
		t.Fatal("unconfigured store should be disabled")
	}
	if _, err := store.Upload(context.Background(), "videos", "nope.mp4", "video/mp4"); err == nil {
		t.Fatal("expected error for disabled store")
	}
}

func TestUploadRejectsMissingOrEmptyFile(t *testing.T) {
	store := NewStore(Config{Endpoint: "storage.local", Bucket: "media"})

	if _, err := store.Upload(context.Background(), "videos", filepath.Join(t.TempDir(), "missing.mp4"), "video/mp4"); err == nil {
		t.Fatal("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}
	if _, err := store.Upload(context.Background(), "videos", empty, "video/mp4"); err == nil {
		t.Fatal("expected error for empty file")
	}
}
