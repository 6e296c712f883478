// Package config loads the optional .dirsig.yaml file that sets scan
// defaults and declares the object stores snapshots are published to.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dirsig/dirsig"
	"github.com/dirsig/dirsig/internal/store"
)

// DefaultFileName is looked for in the working directory when no explicit
// config path is given.
const DefaultFileName = ".dirsig.yaml"

// File is the on-disk configuration. Boolean fields are pointers so an
// absent key leaves the built-in default untouched.
type File struct {
	FollowSymlinks     *bool          `yaml:"follow_symlinks"`
	IncludeMetadata    *bool          `yaml:"include_metadata"`
	CaseSensitivePaths *bool          `yaml:"case_sensitive_paths"`
	LoadIgnoreFile     *bool          `yaml:"load_ignore_file"`
	IgnorePatterns     []string       `yaml:"ignore_patterns"`
	IgnoreFiles        []string       `yaml:"ignore_files"`
	Concurrency        int            `yaml:"concurrency"`
	Stores             []store.Config `yaml:"stores"`
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	for i, sc := range f.Stores {
		if sc.Name == "" {
			return nil, fmt.Errorf("config: stores[%d] has no name", i)
		}
		if sc.Type == "" {
			return nil, fmt.Errorf("config: store %q has no type", sc.Name)
		}
	}

	return &f, nil
}

// Apply overlays the file's settings onto opts. Only keys present in the
// file override; pattern and file lists are appended.
func (f *File) Apply(opts *dirsig.Options) {
	if f.FollowSymlinks != nil {
		opts.FollowSymlinks = *f.FollowSymlinks
	}
	if f.IncludeMetadata != nil {
		opts.IncludeMetadata = *f.IncludeMetadata
	}
	if f.CaseSensitivePaths != nil {
		opts.CaseSensitivePaths = *f.CaseSensitivePaths
	}
	if f.LoadIgnoreFile != nil {
		opts.LoadIgnoreFile = *f.LoadIgnoreFile
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, f.IgnorePatterns...)
	opts.IgnoreFiles = append(opts.IgnoreFiles, f.IgnoreFiles...)
	if f.Concurrency > 0 {
		opts.Concurrency = f.Concurrency
	}
}

// Store returns the configuration of the named store.
func (f *File) Store(name string) (store.Config, error) {
	for _, sc := range f.Stores {
		if sc.Name == name {
			return sc, nil
		}
	}
	return store.Config{}, fmt.Errorf("config: no store named %q", name)
}
