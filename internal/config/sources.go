package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type SourceType string

const (
	SourceRSS  SourceType = "rss"
	SourceHTTP SourceType = "http"
)

// Source is one configured content feed or page.
type Source struct {
	Name          string            `yaml:"name"`
	URL           string            `yaml:"url"`
	Type          SourceType        `yaml:"type"`
	Keywords      []string          `yaml:"keywords"`
	CategoryHints []string          `yaml:"category_hints"`
	Headers       map[string]string `yaml:"headers"`
}

// ConfigError reports an unusable sources file. It is always fatal.
type ConfigError struct {
	Path string
	Msg  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("sources config %s: %s", e.Path, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// LoadSources parses a sources YAML file with a top-level "sources" list.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigError{Path: path, Msg: "file not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}
	return ParseSources(path, data)
}

// ParseSources validates every entry: name, url and type are required and
// type must be rss or http.
func ParseSources(path string, data []byte) ([]Source, error) {
	var raw struct {
		Sources yaml.Node `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Path: path, Msg: err.Error()}
	}
	if raw.Sources.Kind == 0 || raw.Sources.Tag == "!!null" {
		return nil, nil
	}
	if raw.Sources.Kind != yaml.SequenceNode {
		return nil, &ConfigError{Path: path, Msg: "'sources' must be a list"}
	}

	sources := make([]Source, 0, len(raw.Sources.Content))
	for i, node := range raw.Sources.Content {
		if node.Kind != yaml.MappingNode {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("source %d must be a mapping", i)}
		}
		var fields map[string]any
		if err := node.Decode(&fields); err != nil {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("source %d: %v", i, err)}
		}
		var missing []string
		for _, f := range []string{"name", "type", "url"} {
			if _, ok := fields[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("source %d is missing required fields %v", i, missing)}
		}

		var src Source
		if err := node.Decode(&src); err != nil {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("source %d: %v", i, err)}
		}
		src = trimSource(src)
		if src.Type != SourceRSS && src.Type != SourceHTTP {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("invalid type %q for %s, must be rss or http", src.Type, src.Name)}
		}
		if u, err := url.Parse(src.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("invalid url %q for %s", src.URL, src.Name)}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func trimSource(s Source) Source {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Type = SourceType(strings.TrimSpace(string(s.Type)))
	for i := range s.Keywords {
		s.Keywords[i] = strings.TrimSpace(s.Keywords[i])
	}
	for i := range s.CategoryHints {
		s.CategoryHints[i] = strings.TrimSpace(s.CategoryHints[i])
	}
	return s
}
