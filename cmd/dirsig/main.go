// Command dirsig prints a deterministic 256-bit digest of a directory
// tree, and optionally records the scan as a manifest published to an
// object store.
//
// Usage:
//
//	dirsig [flags] [DIR]
//
// DIR defaults to the current directory. The digest and scanned directory
// are written to stdout; a status line goes to stderr. Exit code 0 means
// success (and a matching digest under --check), 1 means an error or a
// --check mismatch, 2 means a usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dirsig/dirsig"
	"github.com/dirsig/dirsig/internal/config"
	"github.com/dirsig/dirsig/internal/manifest"
	"github.com/dirsig/dirsig/internal/publish"
	"github.com/dirsig/dirsig/internal/store"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// stringList collects repeatable string flags.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type cliFlags struct {
	ignorePatterns  stringList
	ignoreFiles     stringList
	followSymlinks  bool
	includeMetadata bool
	ignoreCase      bool
	noIgnoreFile    bool
	jobs            int
	configPath      string
	manifestPath    string
	publishStore    string
	checkStore      string
	treeName        string
	prune           int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cf cliFlags

	fs := flag.NewFlagSet("dirsig", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Var(&cf.ignorePatterns, "ignore", "glob pattern to exclude (repeatable)")
	fs.Var(&cf.ignoreFiles, "ignore-file", "file of glob patterns to exclude (repeatable)")
	fs.BoolVar(&cf.followSymlinks, "follow-symlinks", false, "follow symbolic links during the walk")
	fs.BoolVar(&cf.includeMetadata, "include-metadata", false, "fold permissions and mtimes into the digest")
	fs.BoolVar(&cf.ignoreCase, "ignore-case", false, "treat paths case-insensitively (ASCII fold)")
	fs.BoolVar(&cf.noIgnoreFile, "no-ignore-file", false, "do not auto-load "+dirsig.IgnoreFileName+" from the root")
	fs.IntVar(&cf.jobs, "jobs", 0, "parallel file hashing jobs (0 or 1 = sequential)")
	fs.StringVar(&cf.configPath, "config", "", "config file (default "+config.DefaultFileName+" if present)")
	fs.StringVar(&cf.manifestPath, "manifest", "", "write the snapshot manifest JSON to this file")
	fs.StringVar(&cf.publishStore, "publish", "", "publish the manifest to the named configured store")
	fs.StringVar(&cf.checkStore, "check", "", "compare the digest against the latest snapshot in the named store")
	fs.StringVar(&cf.treeName, "tree", "", "tree name used as the store key prefix (default: base name of DIR)")
	fs.IntVar(&cf.prune, "prune", -1, "after publishing, keep only the N most recent snapshots")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "dirsig: at most one directory argument is allowed")
		fs.Usage()
		return 2
	}
	dir := "."
	if fs.NArg() == 1 {
		dir = fs.Arg(0)
	}

	if err := realMain(&cf, fs, dir); err != nil {
		fmt.Fprintf(os.Stderr, "dirsig: %v\n", err)
		return 1
	}
	return 0
}

func realMain(cf *cliFlags, fs *flag.FlagSet, dir string) error {
	opts := dirsig.DefaultOptions()

	cfgFile, err := loadConfig(cf.configPath)
	if err != nil {
		return err
	}
	if cfgFile != nil {
		cfgFile.Apply(&opts)
	}

	applyFlags(&opts, cf, fs)

	opts.Warn = func(path string, err error) {
		fmt.Fprintf(os.Stderr, "dirsig: warn: %s: %v\n", path, err)
	}

	ctx := context.Background()

	res, err := dirsig.Scan(ctx, dir, opts)
	if err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", res.Digest, dir)
	fmt.Fprintf(os.Stderr, "ok  %s  %s\n", time.Now().UTC().Format(time.RFC3339), dir)

	if cf.manifestPath == "" && cf.publishStore == "" && cf.checkStore == "" {
		return nil
	}

	m := buildManifest(res, opts)
	treeName := cf.treeName
	if treeName == "" {
		treeName = filepath.Base(res.Root)
	}

	if cf.manifestPath != "" {
		if err := writeManifestFile(cf.manifestPath, m); err != nil {
			return err
		}
	}

	if cf.publishStore != "" {
		st, err := openStore(cfgFile, cf.publishStore)
		if err != nil {
			return err
		}
		id, err := publish.Publish(ctx, st, treeName, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "published  %s  %s/%s\n", id, st.Name(), treeName)

		if cf.prune >= 0 {
			deleted, err := publish.Prune(ctx, st, treeName, cf.prune)
			if err != nil {
				return err
			}
			for _, victim := range deleted {
				fmt.Fprintf(os.Stderr, "pruned  %s\n", victim)
			}
		}
	} else if cf.prune >= 0 {
		return errors.New("--prune requires --publish")
	}

	if cf.checkStore != "" {
		st, err := openStore(cfgFile, cf.checkStore)
		if err != nil {
			return err
		}
		cr, err := publish.Check(ctx, st, treeName, res.Digest)
		if err != nil {
			return err
		}
		if !cr.Match {
			return fmt.Errorf("digest mismatch against snapshot %s: published %s, live %s",
				cr.SnapshotID, cr.PublishedDigest, cr.LiveDigest)
		}
		fmt.Fprintf(os.Stderr, "match  %s\n", cr.SnapshotID)
	}

	return nil
}

// loadConfig reads the config file. An explicit path must exist; the
// default file is optional.
func loadConfig(path string) (*config.File, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultFileName); err != nil {
		return nil, nil
	}
	return config.Load(config.DefaultFileName)
}

// applyFlags overlays command-line flags onto opts. Boolean and numeric
// flags override config values only when given explicitly.
func applyFlags(opts *dirsig.Options, cf *cliFlags, fs *flag.FlagSet) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["follow-symlinks"] {
		opts.FollowSymlinks = cf.followSymlinks
	}
	if set["include-metadata"] {
		opts.IncludeMetadata = cf.includeMetadata
	}
	if set["ignore-case"] {
		opts.CaseSensitivePaths = !cf.ignoreCase
	}
	if set["no-ignore-file"] {
		opts.LoadIgnoreFile = !cf.noIgnoreFile
	}
	if set["jobs"] && cf.jobs > 0 {
		opts.Concurrency = cf.jobs
	}
	opts.IgnorePatterns = append(opts.IgnorePatterns, cf.ignorePatterns...)
	opts.IgnoreFiles = append(opts.IgnoreFiles, cf.ignoreFiles...)
}

// buildManifest assembles a manifest from a scan result. The snapshot ID
// is assigned at publish time and left empty here.
func buildManifest(res *dirsig.Result, opts dirsig.Options) *manifest.Manifest {
	return &manifest.Manifest{
		SchemaVersion:      manifest.SchemaVersion,
		ToolVersion:        version,
		Root:               res.Root,
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
		Digest:             res.Digest,
		IncludeMetadata:    opts.IncludeMetadata,
		CaseSensitivePaths: opts.CaseSensitivePaths,
		Files:              manifest.FileDigests(res.Files),
	}
}

func writeManifestFile(path string, m *manifest.Manifest) error {
	data, err := manifest.Marshal(m)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// openStore resolves a named store from the loaded config.
func openStore(cfgFile *config.File, name string) (store.Store, error) {
	if cfgFile == nil {
		return nil, fmt.Errorf("store %q requested but no config file was loaded", name)
	}
	sc, err := cfgFile.Store(name)
	if err != nil {
		return nil, err
	}
	return store.New(sc)
}
