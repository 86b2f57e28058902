//go:build linux

package fs

import (
	"fmt"
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime returns the creation time of path via statx. Filesystems that
// do not record it report the modification time instead.
func birthTime(path string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return info.ModTime()
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}

func setModTime(path string, t time.Time) error {
	ts := []unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(t.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return fmt.Errorf("setting modification time of %s: %w", path, err)
	}
	return nil
}
