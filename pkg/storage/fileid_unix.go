//go:build unix

package storage

import (
	"io/fs"
	"syscall"
)

// fileID extracts the device and inode numbers identifying a file object
func fileID(info fs.FileInfo) (dev, ino uint64) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Dev), uint64(st.Ino)
	}
	return 0, 0
}
