// Package snapid generates and parses snapshot identifiers.
//
// Format: snap_<timestamp>_<random>
//   - timestamp: UTC YYYYMMDD'T'HHmmss'Z'
//   - random:    8 lowercase hex characters from crypto/rand
//
// Example: snap_20260823T140102Z_6f2c9a1b
package snapid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	prefix       = "snap_"
	timestampFmt = "20060102T150405Z"
	randomBytes  = 4 // 4 bytes = 8 hex chars
)

// New generates a new snapshot ID using the current UTC time and
// cryptographically random bytes.
func New() string {
	ts := time.Now().UTC().Format(timestampFmt)

	b := make([]byte, randomBytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("snapid: crypto/rand failed: %v", err))
	}

	return prefix + ts + "_" + hex.EncodeToString(b)
}

// Parse extracts the timestamp from a snapshot ID string. It returns an
// error if the ID is not in the expected format.
func Parse(id string) (time.Time, error) {
	if !strings.HasPrefix(id, prefix) {
		return time.Time{}, fmt.Errorf("snapid: invalid prefix in %q", id)
	}

	rest := id[len(prefix):]
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("snapid: missing random segment in %q", id)
	}

	ts, err := time.Parse(timestampFmt, parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("snapid: bad timestamp in %q: %w", id, err)
	}

	if len(parts[1]) != randomBytes*2 {
		return time.Time{}, fmt.Errorf("snapid: random segment wrong length in %q", id)
	}
	if _, err := hex.DecodeString(parts[1]); err != nil {
		return time.Time{}, fmt.Errorf("snapid: random segment not hex in %q: %w", id, err)
	}

	return ts, nil
}

// IsValid reports whether id is a well-formed snapshot ID.
func IsValid(id string) bool {
	_, err := Parse(id)
	return err == nil
}
