package drm

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DRM mode ioctl numbers, computed the same way as the master/drop-master
// pair in node.go: _IOWR(DRM_IOCTL_BASE, nr, size) with DRM_IOCTL_BASE='d'.
// No cgo libdrm binding exists anywhere in the retrieved pack, so connector
// discovery is done the same raw-ioctl way OpenMaster already takes DRM
// master: golang.org/x/sys/unix.Syscall against the kernel uapi structs
// directly, matching linux/drm/drm_mode.h.
const (
	iocRead  = 2
	iocWrite = 1

	drmModeConnected = 1

	// drmModeTypePreferred is DRM_MODE_TYPE_PREFERRED from
	// linux/drm/drm_mode.h: the bit a connector's preferred mode carries in
	// struct drm_mode_modeinfo.type.
	drmModeTypePreferred = 1 << 3

	drmDisplayModeLen = 32
)

func iocDir(dir, typ, nr uint8, size uintptr) uintptr {
	return uintptr(dir)<<30 | uintptr(typ)<<8 | uintptr(nr) | size<<16
}

var (
	drmIoctlModeGetResources = iocDir(iocRead|iocWrite, drmIoctlBase, 0xA0, unsafe.Sizeof(drmModeCardRes{}))
	drmIoctlModeGetConnector = iocDir(iocRead|iocWrite, drmIoctlBase, 0xA7, unsafe.Sizeof(drmModeGetConnector{}))
)

type drmModeCardRes struct {
	fbIDPtr        uint64
	crtcIDPtr      uint64
	connectorIDPtr uint64
	encoderIDPtr   uint64
	countFbs       uint32
	countCrtcs     uint32
	countConnectors uint32
	countEncoders  uint32
	minWidth       uint32
	maxWidth       uint32
	minHeight      uint32
	maxHeight      uint32
}

type drmModeGetConnector struct {
	encodersPtr   uint64
	modesPtr      uint64
	propsPtr      uint64
	propValuesPtr uint64

	countModes    uint32
	countProps    uint32
	countEncoders uint32
	encoderID     uint32
	connectorID   uint32
	connectorType uint32
	connectorTypeID uint32
	connection    uint32
	mmWidth       uint32
	mmHeight      uint32
	subpixel      uint32
	pad           uint32
}

// drmModeModeInfo mirrors struct drm_mode_modeinfo: only clock/flags/type
// matter here, the rest is kept so the struct's size matches the kernel's
// layout exactly for the two-pass modesPtr fetch.
type drmModeModeInfo struct {
	clock                                              uint32
	hdisplay, hsyncStart, hsyncEnd, htotal, hskew       uint16
	vdisplay, vsyncStart, vsyncEnd, vtotal, vscan       uint16
	vrefresh                                            uint32
	flags                                               uint32
	typ                                                 uint32
	name                                                [drmDisplayModeLen]byte
}

// ConnectorInfo is one DRM_MODE_CONNECTED connector on a node, carrying
// just enough to build a gpu.MonitorDescriptor: the connector id Vulkan's
// VK_EXT_acquire_drm_display needs, and the panel's physical dimensions.
type ConnectorInfo struct {
	ID               uint32
	PhysicalWidthMM  uint32
	PhysicalHeightMM uint32
	// Preferred is DRM_MODE_TYPE_PREFERRED read off the connector's own
	// mode list, not a boolean that gets set once and never cleared.
	Preferred bool
}

// Connectors enumerates every connected connector on the node via
// DRM_IOCTL_MODE_GETRESOURCES + DRM_IOCTL_MODE_GETCONNECTOR, skipping
// anything not reporting DRM_MODE_CONNECTED.
func (n *Node) Connectors() ([]ConnectorInfo, error) {
	var res drmModeCardRes
	if err := ioctl(n.file.Fd(), drmIoctlModeGetResources, uintptr(unsafe.Pointer(&res))); err != nil {
		return nil, fmt.Errorf("get resources on %s: %w", n.Path, err)
	}
	if res.countConnectors == 0 {
		return nil, nil
	}

	ids := make([]uint32, res.countConnectors)
	res.connectorIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
	if err := ioctl(n.file.Fd(), drmIoctlModeGetResources, uintptr(unsafe.Pointer(&res))); err != nil {
		return nil, fmt.Errorf("get connector ids on %s: %w", n.Path, err)
	}

	out := make([]ConnectorInfo, 0, len(ids))
	for _, id := range ids {
		var conn drmModeGetConnector
		conn.connectorID = id
		if err := ioctl(n.file.Fd(), drmIoctlModeGetConnector, uintptr(unsafe.Pointer(&conn))); err != nil {
			continue
		}
		if conn.connection != drmModeConnected {
			continue
		}
		out = append(out, ConnectorInfo{
			ID:               id,
			PhysicalWidthMM:  conn.mmWidth,
			PhysicalHeightMM: conn.mmHeight,
			Preferred:        n.connectorHasPreferredMode(conn),
		})
	}
	return out, nil
}

// connectorHasPreferredMode re-issues DRM_IOCTL_MODE_GETCONNECTOR with a
// backing array for the connector's mode list, the same two-pass shape
// Connectors itself uses for the connector id array, and reports whether
// any mode carries DRM_MODE_TYPE_PREFERRED. A failure here just means no
// mode is reported as preferred, not that enumeration as a whole fails.
func (n *Node) connectorHasPreferredMode(conn drmModeGetConnector) bool {
	if conn.countModes == 0 {
		return false
	}

	modes := make([]drmModeModeInfo, conn.countModes)
	conn.modesPtr = uint64(uintptr(unsafe.Pointer(&modes[0])))
	conn.countProps = 0
	conn.propsPtr = 0
	conn.countEncoders = 0
	conn.encodersPtr = 0

	if err := ioctl(n.file.Fd(), drmIoctlModeGetConnector, uintptr(unsafe.Pointer(&conn))); err != nil {
		return false
	}

	for _, m := range modes {
		if m.typ&drmModeTypePreferred != 0 {
			return true
		}
	}
	return false
}
