package markdown

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "b-post.md", "---\ntitle: B\ndate: 2026-02-01T00:00:00Z\n---\n# Hello\n")
	writeFile(t, tmpDir, "nested/a-post.mdx", "No header here.\n")
	writeFile(t, tmpDir, "notes.txt", "ignored")

	files, err := NewLoader(tmpDir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Load() returned %d files, want 2", len(files))
	}
	if files[0].Header.Title != "B" {
		t.Errorf("Header.Title = %q, want %q", files[0].Header.Title, "B")
	}
	if files[0].Header.Date.Year() != 2026 {
		t.Errorf("Header.Date = %v, want year 2026", files[0].Header.Date)
	}
	if string(files[0].Body) != "# Hello\n" {
		t.Errorf("Body = %q", files[0].Body)
	}
	if string(files[1].Body) != "No header here.\n" {
		t.Errorf("Body without front matter = %q", files[1].Body)
	}
}

func TestLoaderLoadDirNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/content").Load()
	if err == nil {
		t.Error("Load() with non-existent directory should return error")
	}
}

func TestLoaderInvalidFrontMatter(t *testing.T) {
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, "bad.md", "---\ntitle: [unclosed\n---\nbody\n")

	if _, err := NewLoader(tmpDir).LoadFile(path); err == nil {
		t.Error("LoadFile() with invalid YAML should return error")
	}
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantHeader string
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "header and body",
			input:      "---\ntitle: x\n---\nbody\n",
			wantHeader: "title: x\n",
			wantBody:   "body\n",
		},
		{
			name:       "crlf line endings",
			input:      "---\r\ntitle: x\r\n---\r\nbody",
			wantHeader: "title: x\r\n",
			wantBody:   "body",
		},
		{
			name:     "no header",
			input:    "# Title\n",
			wantBody: "# Title\n",
		},
		{
			name:     "horizontal rule is not a header",
			input:    "---- \ntext",
			wantBody: "---- \ntext",
		},
		{
			name:       "closing fence at end of file",
			input:      "---\ntitle: x\n---",
			wantHeader: "title: x\n",
			wantBody:   "",
		},
		{
			name:    "unterminated",
			input:   "---\ntitle: x\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header, body, err := splitFrontMatter([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("splitFrontMatter() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("splitFrontMatter() error = %v", err)
			}
			if string(header) != tt.wantHeader {
				t.Errorf("header = %q, want %q", header, tt.wantHeader)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}
