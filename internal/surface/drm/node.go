package drm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DRM ioctl numbers, computed the same way libdrm's xf86drm.h does:
// _IO(DRM_IOCTL_BASE, nr) == (DRM_IOCTL_BASE << 8) | nr, DRM_IOCTL_BASE = 'd'.
const (
	drmIoctlBase       = 0x64
	drmIoctlSetMaster  = (drmIoctlBase << 8) | 0x1e
	drmIoctlDropMaster = (drmIoctlBase << 8) | 0x1f
)

// Node is an open DRM primary node held under DRM master for the lifetime
// of the process's use of it.
type Node struct {
	Path string
	file *os.File

	Major int64
	Minor int64
}

// OpenMaster opens path O_RDWR, takes DRM master on it, and records the
// (major, minor) device identity from fstat, matching the spec's §6 DRM
// device acquisition sequence.
func OpenMaster(path string) (*Node, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := ioctl(f.Fd(), drmIoctlSetMaster, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("set master on %s: %w", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &stat); err != nil {
		ioctl(f.Fd(), drmIoctlDropMaster, 0)
		f.Close()
		return nil, fmt.Errorf("fstat %s: %w", path, err)
	}

	return &Node{
		Path:  path,
		file:  f,
		Major: int64(unix.Major(stat.Rdev)),
		Minor: int64(unix.Minor(stat.Rdev)),
	}, nil
}

// Fd returns the underlying file descriptor, e.g. to pass to
// vk.PhysicalDevice.GetDrmDisplayEXT/AcquireDrmDisplayEXT.
func (n *Node) Fd() int32 {
	return int32(n.file.Fd())
}

// Close drops DRM master and closes the node. Idempotent.
func (n *Node) Close() error {
	if n.file == nil {
		return nil
	}
	ioctl(n.file.Fd(), drmIoctlDropMaster, 0)
	err := n.file.Close()
	n.file = nil
	return err
}

func ioctl(fd uintptr, req uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
