// Package manifest implements the snapshot manifest recorded when a tree
// digest is published, with deterministic serialization so equal scans
// produce byte-identical documents.
package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaVersion is the current manifest schema.
const SchemaVersion = 1

// DigestPrefix is the canonical prefix for per-file content digests.
const DigestPrefix = "blake3:"

// Manifest describes one published tree snapshot.
type Manifest struct {
	SchemaVersion      int               `json:"schema_version"`
	ToolVersion        string            `json:"tool_version"`
	Root               string            `json:"root"`
	SnapshotID         string            `json:"snapshot_id"`
	CreatedAt          string            `json:"created_at"` // RFC3339 UTC
	Digest             string            `json:"digest"`     // tree digest, lowercase hex
	IncludeMetadata    bool              `json:"include_metadata"`
	CaseSensitivePaths bool              `json:"case_sensitive_paths"`
	Files              map[string]string `json:"files"` // rel path -> "blake3:<hex>"
}

// FileDigests converts bare hex content digests to their canonical
// prefixed form for embedding in a Manifest.
func FileDigests(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for rel, hexDigest := range files {
		out[rel] = DigestPrefix + hexDigest
	}
	return out
}

// sortedFiles serializes a map[string]string with keys in sorted order so
// the output is deterministic regardless of map iteration order.
type sortedFiles struct {
	m map[string]string
}

func (s sortedFiles) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valBytes, err := json.Marshal(s.m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// marshalProxy mirrors Manifest but wraps Files so the struct fields keep
// their declaration order (guaranteed by encoding/json) while the map is
// emitted sorted.
type marshalProxy struct {
	SchemaVersion      int         `json:"schema_version"`
	ToolVersion        string      `json:"tool_version"`
	Root               string      `json:"root"`
	SnapshotID         string      `json:"snapshot_id"`
	CreatedAt          string      `json:"created_at"`
	Digest             string      `json:"digest"`
	IncludeMetadata    bool        `json:"include_metadata"`
	CaseSensitivePaths bool        `json:"case_sensitive_paths"`
	Files              sortedFiles `json:"files"`
}

// Marshal serializes a Manifest to deterministic, indented JSON.
func Marshal(m *Manifest) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest: cannot marshal nil manifest")
	}

	proxy := marshalProxy{
		SchemaVersion:      m.SchemaVersion,
		ToolVersion:        m.ToolVersion,
		Root:               m.Root,
		SnapshotID:         m.SnapshotID,
		CreatedAt:          m.CreatedAt,
		Digest:             m.Digest,
		IncludeMetadata:    m.IncludeMetadata,
		CaseSensitivePaths: m.CaseSensitivePaths,
		Files:              sortedFiles{m: m.Files},
	}

	return json.MarshalIndent(proxy, "", "  ")
}

// Unmarshal deserializes JSON bytes into a Manifest.
func Unmarshal(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: unmarshal failed: %w", err)
	}
	return &m, nil
}
