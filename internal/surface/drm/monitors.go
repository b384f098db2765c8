package drm

import (
	"fmt"
	"log/slog"

	"github.com/Emimendoza/mephland/internal/gpu"
	"github.com/Emimendoza/mephland/vk"
)

// MonitorSource implements internal/gpu.MonitorSource over a fixed set of
// already-opened DRM nodes: for the node matching a Device's primary
// (major, minor), every DRM_MODE_CONNECTED connector becomes one
// MonitorDescriptor wrapping a Provider bound to that connector.
type MonitorSource struct {
	instance vk.Instance
	nodes    []*Node
	log      *slog.Logger
}

// NewMonitorSource wraps the nodes RefreshDevices matched physical devices
// against; instance is needed to build each connector's Provider.
func NewMonitorSource(instance vk.Instance, nodes []*Node, log *slog.Logger) *MonitorSource {
	if log == nil {
		log = slog.Default()
	}
	return &MonitorSource{instance: instance, nodes: nodes, log: log}
}

// Monitors implements gpu.MonitorSource.
func (s *MonitorSource) Monitors(dev *gpu.Device) ([]gpu.MonitorDescriptor, error) {
	drmProps := dev.PhysicalDevice().GetDRMProperties()
	if !drmProps.HasPrimary {
		return nil, nil
	}

	var node *Node
	for _, n := range s.nodes {
		if n.Major == drmProps.PrimaryMajor && n.Minor == drmProps.PrimaryMinor {
			node = n
			break
		}
	}
	if node == nil {
		return nil, nil
	}

	connectors, err := node.Connectors()
	if err != nil {
		return nil, fmt.Errorf("enumerate connectors on %s: %w", node.Path, err)
	}

	out := make([]gpu.MonitorDescriptor, 0, len(connectors))
	for _, c := range connectors {
		display, err := dev.PhysicalDevice().GetDrmDisplayEXT(node.Fd(), c.ID)
		if err != nil {
			s.log.Debug("resolve drm display failed", slog.String("node", node.Path), slog.Int("connector", int(c.ID)), slog.String("err", err.Error()))
			continue
		}
		props, err := displayProperties(dev.PhysicalDevice(), display)
		if err != nil {
			s.log.Debug("display properties failed", slog.String("node", node.Path), slog.Int("connector", int(c.ID)), slog.String("err", err.Error()))
			continue
		}
		mode, err := bestDisplayMode(dev.PhysicalDevice(), display, props.PhysicalResolution)
		if err != nil {
			s.log.Debug("pick mode failed", slog.String("node", node.Path), slog.Int("connector", int(c.ID)), slog.String("err", err.Error()))
			continue
		}

		out = append(out, gpu.MonitorDescriptor{
			ID:                fmt.Sprintf("%d:%d:%d", node.Major, node.Minor, c.ID),
			Name:              fmt.Sprintf("%s-%d", node.Path, c.ID),
			Make:              "",
			Model:             props.DisplayName,
			PhysicalWidthMM:   int32(c.PhysicalWidthMM),
			PhysicalHeightMM:  int32(c.PhysicalHeightMM),
			RefreshMilliHertz: int32(mode.RefreshRate),
			Preferred:         c.Preferred,
			Surface:           New(s.instance, dev.PhysicalDevice(), node, c.ID),
		})
	}
	return out, nil
}
