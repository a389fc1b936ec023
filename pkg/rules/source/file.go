package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource loads rulesets from a single YAML file or a directory of
// .yaml/.yml files. Directory loads merge all documents into one ruleset,
// files in lexical order, hidden files skipped.
type FileSource struct {
	path      string
	strict    bool
	defaults  Defaults
	validator *Validator
	logger    *slog.Logger
}

// NewFileSource creates a file-backed ruleset source. validator may be nil
// to skip schema validation; strict rejects documents with unknown fields.
func NewFileSource(path string, defaults Defaults, validator *Validator, strict bool) *FileSource {
	return &FileSource{
		path:      path,
		strict:    strict,
		defaults:  defaults,
		validator: validator,
		logger:    slog.Default().With("component", "rules.source.file"),
	}
}

// Load reads and validates the ruleset at the configured path.
func (f *FileSource) Load(ctx context.Context) (*Ruleset, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, &LoadError{Path: f.path, Cause: err}
	}

	var paths []string
	if info.IsDir() {
		paths, err = listRulesetFiles(f.path)
		if err != nil {
			return nil, &LoadError{Path: f.path, Cause: err}
		}
		if len(paths) == 0 {
			return nil, &LoadError{Path: f.path, Cause: fmt.Errorf("no ruleset files found")}
		}
	} else {
		paths = []string{f.path}
	}

	merged := Document{Version: 1}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, err := f.loadOne(p)
		if err != nil {
			return nil, err
		}
		if merged.Name == "" {
			merged.Name = doc.Name
		}
		merged.Rules = append(merged.Rules, doc.Rules...)
	}

	if f.validator != nil {
		if err := f.validator.Validate(f.path, &merged); err != nil {
			return nil, err
		}
	} else if err := merged.Validate(); err != nil {
		return nil, err
	}

	name := merged.Name
	if name == "" {
		name = filepath.Base(f.path)
	}

	f.logger.Debug("loaded ruleset",
		"path", f.path,
		"files", len(paths),
		"rule_count", len(merged.Rules),
	)

	return &Ruleset{
		Name:   name,
		Specs:  merged.Rules,
		Rules:  merged.ToRules(f.defaults),
		Origin: f.path,
	}, nil
}

// String describes the source.
func (f *FileSource) String() string {
	return fmt.Sprintf("file:%s", f.path)
}

// Path returns the watched filesystem path.
func (f *FileSource) Path() string {
	return f.path
}

func (f *FileSource) loadOne(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}

	var doc Document
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(f.strict)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	return &doc, nil
}

// listRulesetFiles returns the YAML files directly under and below dir,
// sorted, hidden entries skipped.
func listRulesetFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && path != dir {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
