package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load reads a YAML config file, merges any files its `include` list names
// (depth-first, later files winning), fills defaults for keys the operator
// left unset and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	chain, err := includeChain(abs, map[string]visitState{})
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, file := range chain {
		if err := mergeFile(v, file); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	provided := make(keySet)
	markProvidedKeys("", v.AllSettings(), provided)
	cfg.applyDefaults(provided)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type visitState int

const (
	visiting visitState = iota + 1
	visited
)

// includeChain resolves the include graph rooted at path into a merge order
// where included files come before the file that names them. Cycles are an
// error, repeat visits are skipped.
func includeChain(path string, state map[string]visitState) ([]string, error) {
	path = filepath.Clean(path)
	switch state[path] {
	case visiting:
		return nil, fmt.Errorf("include cycle detected: %s", path)
	case visited:
		return nil, nil
	}
	state[path] = visiting
	includes, err := readIncludes(path)
	if err != nil {
		return nil, fmt.Errorf("parsing include failed (%s): %w", path, err)
	}
	var chain []string
	base := filepath.Dir(path)
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(base, inc)
		}
		sub, err := includeChain(inc, state)
		if err != nil {
			return nil, err
		}
		chain = append(chain, sub...)
	}
	state[path] = visited
	return append(chain, path), nil
}

// readIncludes returns the `include` entries of a single file, trimmed and
// with blanks dropped.
func readIncludes(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			items = make([]any, len(strs))
			for i, s := range strs {
				items[i] = s
			}
		} else {
			return nil, fmt.Errorf("include must be a string array")
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include only supports strings")
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, nil
}

func mergeFile(v *viper.Viper, path string) error {
	tmp := viper.New()
	tmp.SetConfigFile(path)
	if err := tmp.ReadInConfig(); err != nil {
		return err
	}
	return v.MergeConfigMap(tmp.AllSettings())
}

// markProvidedKeys records every dotted key path present in the merged
// settings so defaulting can tell "omitted" apart from "set to zero".
func markProvidedKeys(prefix string, node any, dest keySet) {
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			key := strings.ToLower(strings.TrimSpace(k))
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			markProvidedKeys(key, v, dest)
		}
	case []any:
		if prefix != "" {
			dest.mark(prefix)
		}
		for _, item := range val {
			markProvidedKeys(prefix, item, dest)
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}
