package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractYouTubeID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/channel/xyz", "", true},
		{"https://example.com/watch?v=abc", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractYouTubeID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractYouTubeID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractYouTubeID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestSourceKey(t *testing.T) {
	tests := []struct {
		ref, want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube:dQw4w9WgXcQ"},
		{"  https://youtu.be/dQw4w9WgXcQ ", "youtube:dQw4w9WgXcQ"},
		{"https://soundcloud.com/dj/set", "https://soundcloud.com/dj/set"},
		{"/music/sets/boiler-room.mp3", "/music/sets/boiler-room.mp3"},
	}
	for _, tt := range tests {
		if got := SourceKey(tt.ref); got != tt.want {
			t.Errorf("SourceKey(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestIsRemoteURL(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"http://example.com/set.mp3", true},
		{"/tmp/set.mp3", false},
		{"set.wav", false},
		{"file:///tmp/set.mp3", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsRemoteURL(tt.ref); got != tt.want {
			t.Errorf("IsRemoteURL(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := MakeDir(nested); err != nil {
		t.Fatalf("MakeDir failed: %v", err)
	}

	src := filepath.Join(nested, "in.wav")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if !FileExists(src) {
		t.Error("FileExists should report the written file")
	}
	if FileExists(nested) {
		t.Error("FileExists should be false for a directory")
	}

	dst := filepath.Join(dir, "out.wav")
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if FileExists(src) || !FileExists(dst) {
		t.Error("MoveFile did not move the file")
	}

	if err := DeleteDir(filepath.Join(dir, "a")); err != nil {
		t.Fatalf("DeleteDir failed: %v", err)
	}
	if _, err := os.Stat(nested); !os.IsNotExist(err) {
		t.Error("DeleteDir left the directory behind")
	}
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if len(a) != 36 || a[14] != '4' {
		t.Errorf("Expected a version 4 UUID, got %q", a)
	}
	if a == b {
		t.Error("Expected distinct UUIDs")
	}
}
