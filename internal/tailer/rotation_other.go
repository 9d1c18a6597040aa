//go:build !unix

package tailer

import "os"

// fileIdentity is empty on non-unix platforms: rotation detection there
// relies solely on the size-regression check from spec §4.4.
type fileIdentity struct{}

// statPath reports the current size of the file at path. Non-unix builds
// have no inode to compare, so identity never changes here.
func statPath(path string) (size int64, id fileIdentity, err error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fileIdentity{}, err
	}
	return fi.Size(), fileIdentity{}, nil
}
