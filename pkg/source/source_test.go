package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		url    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://datasets/census.dta", "datasets", "census.dta", true},
		{"s3://datasets/dir/census.dta", "datasets", "dir/census.dta", true},
		{"s3://datasets", "", "", false},
		{"s3://datasets/", "", "", false},
		{"s3:///key", "", "", false},
		{"/local/path.dta", "", "", false},
		{"https://example.com/x", "", "", false},
	}
	for _, tt := range tests {
		bucket, key, ok := ParseS3URL(tt.url)
		if bucket != tt.bucket || key != tt.key || ok != tt.ok {
			t.Errorf("ParseS3URL(%q) = %q, %q, %v; want %q, %q, %v",
				tt.url, bucket, key, ok, tt.bucket, tt.key, tt.ok)
		}
	}
}

func TestOpenMmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	content := []byte("0123456789")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := OpenMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if m.Size() != int64(len(content)) {
		t.Errorf("Size() = %d, want %d", m.Size(), len(content))
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(m, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "0123" {
		t.Errorf("read %q", buf)
	}

	// Seek and re-read.
	if _, err := m.Seek(7, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	rest, err := io.ReadAll(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "789" {
		t.Errorf("tail read %q", rest)
	}
}

func TestOpenMmapEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	m, err := OpenMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if m.Size() != 0 {
		t.Errorf("Size() = %d, want 0", m.Size())
	}
	if _, err := io.ReadAll(m); err != nil {
		t.Errorf("read empty mapping: %v", err)
	}
}

func TestOpenMmapMissingFile(t *testing.T) {
	if _, err := OpenMmap(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
