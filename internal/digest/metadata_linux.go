//go:build linux

package digest

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// metadataFrame encodes the metadata frame for the file at path: the frame
// tag, the raw st_mode word (uint32 LE), then the mtime fields. It returns
// nil when the metadata cannot be read.
func metadataFrame(path string) []byte {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil
	}
	frame := make([]byte, 0, len(metaTag)+4+12)
	frame = append(frame, metaTag...)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(st.Mode))
	return appendMtime(frame, st.Mtim.Sec, st.Mtim.Nsec)
}
