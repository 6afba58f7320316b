package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reclamai/internal/logger"

	"gopkg.in/yaml.v3"
)

// CorpusEntry is one retrievable chunk of the knowledge base.
type CorpusEntry struct {
	SourceID string   `yaml:"id"`
	Text     string   `yaml:"text"`
	Tags     []string `yaml:"tags"`
}

type corpusFile struct {
	Entries []CorpusEntry `yaml:"entries"`
}

// LoadCorpus reads a knowledge file. YAML files carry explicit entries with
// tags; anything else is treated as markdown/plain text and chunked on blank
// lines, the same split the FAQ was authored around.
func LoadCorpus(path string) ([]CorpusEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge corpus failed: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		var f corpusFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("parse knowledge corpus failed: %w", err)
		}
		entries := make([]CorpusEntry, 0, len(f.Entries))
		for i, e := range f.Entries {
			if strings.TrimSpace(e.Text) == "" {
				continue
			}
			if strings.TrimSpace(e.SourceID) == "" {
				e.SourceID = fmt.Sprintf("%s#%d", filepath.Base(path), i+1)
			}
			entries = append(entries, e)
		}
		logger.Infof("knowledge corpus loaded: path=%s entries=%d", path, len(entries))
		return entries, nil
	}

	base := filepath.Base(path)
	var entries []CorpusEntry
	for i, block := range strings.Split(string(raw), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		entries = append(entries, CorpusEntry{
			SourceID: fmt.Sprintf("%s#%d", base, i+1),
			Text:     block,
		})
	}
	logger.Infof("knowledge corpus loaded: path=%s chunks=%d", path, len(entries))
	return entries, nil
}

// OpenIndex is the one-call constructor used by the app builder.
func OpenIndex(path string, minScore float64) (*Index, error) {
	entries, err := LoadCorpus(path)
	if err != nil {
		return nil, err
	}
	return NewIndex(entries, minScore)
}
