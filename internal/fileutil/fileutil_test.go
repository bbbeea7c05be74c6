package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"vigil/internal/fileutil"
)

func TestChecksumStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.bin")
	if err := os.WriteFile(path, []byte("frame data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	first, err := fileutil.Checksum(path)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	second, err := fileutil.Checksum(path)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if first != second {
		t.Fatalf("checksum not stable: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha256, got %q", first)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cam_20260826.mp4")

	if got := fileutil.UniquePath(path); got != path {
		t.Fatalf("expected untouched path, got %q", got)
	}

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got := fileutil.UniquePath(path)
	want := filepath.Join(dir, "cam_20260826_1.mp4")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}

	if err := os.WriteFile(want, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got = fileutil.UniquePath(path)
	want = filepath.Join(dir, "cam_20260826_2.mp4")
	if got != want {
		t.Fatalf("UniquePath = %q, want %q", got, want)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("unexpected dst contents: %q", data)
	}
}
