//go:build !unix

package digest

import "os"

// metadataFrame encodes the metadata frame for platforms without POSIX
// permission bits: the frame tag, a single read-only flag byte, then the
// mtime fields. It returns nil when the metadata cannot be read.
func metadataFrame(path string) []byte {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	var ro byte
	if info.Mode().Perm()&0o200 == 0 {
		ro = 1
	}
	frame := make([]byte, 0, len(metaTag)+1+12)
	frame = append(frame, metaTag...)
	frame = append(frame, ro)
	mt := info.ModTime()
	return appendMtime(frame, mt.Unix(), int64(mt.Nanosecond()))
}
