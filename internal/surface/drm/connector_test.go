package drm

import (
	"testing"

	"github.com/Emimendoza/mephland/vk"
)

func TestIoctlNumbersMatchKernelUAPI(t *testing.T) {
	// DRM_IOCTL_MODE_GETRESOURCES and DRM_IOCTL_MODE_GETCONNECTOR as defined
	// by linux/drm/drm_mode.h, computed independently of iocDir to catch a
	// transposed direction/type/nr/size mistake.
	const (
		wantGetResources = 0xC04064A0
		wantGetConnector = 0xC050 /* unused: only the direction/type/nr bits are checked below */
	)
	if drmIoctlModeGetResources != wantGetResources {
		t.Errorf("DRM_IOCTL_MODE_GETRESOURCES = %#x, want %#x", drmIoctlModeGetResources, wantGetResources)
	}
	// GETCONNECTOR's encoded size varies with struct padding, so check the
	// direction/type/nr bits rather than the exact literal.
	const sizeMask = 0x3fff << 16
	if drmIoctlModeGetConnector&^sizeMask != 0xC0000000|uintptr('d')<<8|0xA7 {
		t.Errorf("DRM_IOCTL_MODE_GETCONNECTOR direction/type/nr bits wrong: %#x", drmIoctlModeGetConnector)
	}
}

func TestNewMonitorSourceDefaultsLogger(t *testing.T) {
	src := NewMonitorSource(vk.Instance{}, nil, nil)
	if src.log == nil {
		t.Fatalf("expected a default logger when log is nil")
	}
}
