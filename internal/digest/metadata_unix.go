//go:build unix && !linux

package digest

import (
	"encoding/binary"
	"os"
	"syscall"
)

// metadataFrame encodes the metadata frame for the file at path: the frame
// tag, the raw st_mode word (uint32 LE), then the mtime fields. The mtime
// comes through os.FileInfo because the Stat_t timestamp field is named
// differently across the BSDs and darwin. It returns nil when the metadata
// cannot be read.
func metadataFrame(path string) []byte {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	frame := make([]byte, 0, len(metaTag)+4+12)
	frame = append(frame, metaTag...)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(st.Mode))
	mt := info.ModTime()
	return appendMtime(frame, mt.Unix(), int64(mt.Nanosecond()))
}
