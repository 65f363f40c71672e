// Package docs renders the asciidoc pages under internal/docs for the
// dashboard's Docs view. Rendered HTML is cached per file for the lifetime
// of the process.
package docs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bytesparadise/libasciidoc"
	"github.com/bytesparadise/libasciidoc/pkg/configuration"
)

type Service struct {
	docsDir string
	mu      sync.RWMutex
	cache   map[string]string // filename -> rendered html
}

func NewService(docsDir string) *Service {
	return &Service{
		docsDir: docsDir,
		cache:   make(map[string]string),
	}
}

// GetDoc renders one asciidoc file to embeddable HTML. The filename comes
// from a URL parameter, so it is reduced to its base name before touching
// the filesystem.
func (s *Service) GetDoc(ctx context.Context, filename string) (string, error) {
	filename = filepath.Base(filename)

	s.mu.RLock()
	content, ok := s.cache[filename]
	s.mu.RUnlock()
	if ok {
		return content, nil
	}

	data, err := os.ReadFile(filepath.Join(s.docsDir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to read doc file: %w", err)
	}

	output := bytes.NewBuffer(nil)
	config := configuration.NewConfiguration(
		configuration.WithHeaderFooter(false), // embedded in the dashboard layout
		configuration.WithAttribute("toc", "left"),
	)

	if _, err := libasciidoc.Convert(bytes.NewReader(data), output, config); err != nil {
		return "", fmt.Errorf("failed to convert asciidoc: %w", err)
	}

	html := output.String()

	s.mu.Lock()
	s.cache[filename] = html
	s.mu.Unlock()

	return html, nil
}

// ListDocs returns the available asciidoc filenames, sorted.
func (s *Service) ListDocs() ([]string, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".adoc") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
