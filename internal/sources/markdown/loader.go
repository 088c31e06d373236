package markdown

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// Loader reads article files from a content directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads every .md and .mdx file under the directory, sorted by path.
func (l *Loader) Load() ([]File, error) {
	var paths []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".mdx":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content directory: %w", err)
	}
	sort.Strings(paths)

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		f, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// LoadFile reads and splits one article file.
func (l *Loader) LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read article file: %w", err)
	}

	header, body, err := splitFrontMatter(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}

	var fm FrontMatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return File{}, fmt.Errorf("failed to parse front matter of %s: %w", path, err)
		}
	}
	return File{Path: path, Header: fm, Body: body}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// Markdown body. Files without one have an empty header.
func splitFrontMatter(data []byte) ([]byte, []byte, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(data, fence) {
		return nil, data, nil
	}

	rest := data[len(fence):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return nil, data, nil
	}
	rest = rest[nl+1:]

	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		next := len(rest)
		if end >= 0 {
			line = rest[off : off+end]
			next = off + end + 1
		}
		if bytes.Equal(bytes.TrimRight(line, " \r\t"), fence) {
			return rest[:off], rest[next:], nil
		}
		off = next
	}
	return nil, nil, fmt.Errorf("unterminated front matter")
}
