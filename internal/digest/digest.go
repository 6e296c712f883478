// Package digest composes the two-level blake3 digest of an ordered file
// list: each file's bytes stream through a fresh inner hash, and the outer
// hash consumes framed records of path, content digest, and optional
// metadata.
package digest

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/dirsig/dirsig/internal/tree"
)

const (
	// domainTag is hashed first so this format's digests are
	// distinguishable from other blake3 uses.
	domainTag = "dirsig-v1\x00"
	// fileTag starts each per-file record in the outer stream.
	fileTag = "F\x00"
	// metaTag starts a metadata frame within a file record.
	metaTag = "\x00M\x00"

	chunkSize = 64 * 1024
)

// Params controls composition.
type Params struct {
	IncludeMetadata bool
	CaseSensitive   bool
	Concurrency     int // <= 1 hashes sequentially
}

// Result carries the finalized tree digest and each file's content digest.
type Result struct {
	Digest string            // lowercase hex, 64 characters
	Files  map[string]string // normalized rel path -> lowercase hex content digest
}

// fileRecord is the per-file data folded into the outer hash.
type fileRecord struct {
	content [32]byte
	meta    []byte // framed metadata bytes, nil when absent
}

// Compose streams every entry through an inner hash and folds the framed
// records into the outer hash in the order given; entries must already be
// in their final deterministic order. A file read error aborts the whole
// composition and no partial digest is returned.
func Compose(ctx context.Context, entries []tree.Entry, p Params) (*Result, error) {
	records := make([]fileRecord, len(entries))
	var err error
	if p.Concurrency > 1 {
		err = hashParallel(ctx, entries, p, records)
	} else {
		err = hashSequential(ctx, entries, p, records)
	}
	if err != nil {
		return nil, err
	}

	outer := blake3.New()
	outer.Write([]byte(domainTag))

	files := make(map[string]string, len(entries))
	for i, e := range entries {
		rel := e.Rel
		if !p.CaseSensitive {
			rel = tree.FoldASCII(rel)
		}
		outer.Write([]byte(fileTag))
		outer.Write([]byte(rel))
		outer.Write([]byte{0})
		outer.Write(records[i].content[:])
		if records[i].meta != nil {
			outer.Write(records[i].meta)
		}
		files[e.Rel] = hex.EncodeToString(records[i].content[:])
	}

	return &Result{
		Digest: hex.EncodeToString(outer.Sum(nil)),
		Files:  files,
	}, nil
}

func hashSequential(ctx context.Context, entries []tree.Entry, p Params, records []fileRecord) error {
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := hashEntry(e, p.IncludeMetadata)
		if err != nil {
			return err
		}
		records[i] = rec
	}
	return nil
}

// hashEntry streams one file through a fresh inner hash and, when
// requested, reads its metadata frame afterwards. Metadata is best
// effort: a file whose metadata cannot be read simply has no frame.
func hashEntry(e tree.Entry, includeMetadata bool) (fileRecord, error) {
	var rec fileRecord
	f, err := os.Open(e.Abs)
	if err != nil {
		return rec, fmt.Errorf("digest: open %q: %w", e.Rel, err)
	}
	defer f.Close()

	inner := blake3.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(inner, f, buf); err != nil {
		return rec, fmt.Errorf("digest: read %q: %w", e.Rel, err)
	}
	copy(rec.content[:], inner.Sum(nil))

	if includeMetadata {
		rec.meta = metadataFrame(e.Abs)
	}
	return rec, nil
}

// appendMtime appends the modification time as whole seconds (uint64 LE)
// and nanoseconds (uint32 LE). Pre-epoch times are omitted entirely.
func appendMtime(frame []byte, sec, nsec int64) []byte {
	if sec < 0 {
		return frame
	}
	frame = binary.LittleEndian.AppendUint64(frame, uint64(sec))
	frame = binary.LittleEndian.AppendUint32(frame, uint32(nsec))
	return frame
}
