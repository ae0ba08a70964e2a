// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/samber/lo"
)

// ErrNVMLUnavailable is returned when the NVML library cannot be initialized,
// typically because the driver is not installed on the node
var ErrNVMLUnavailable = errors.New("NVML unavailable")

// Device describes one accelerator as reported by NVML
type Device struct {
	// Index is the NVML device index (0-based)
	Index int `json:"index"`

	// UUID is the globally unique identifier of the device
	UUID string `json:"uuid"`

	// Name is the product name, e.g. "NVIDIA GH200 480GB"
	Name string `json:"name"`
}

// ProbeLabel returns the energy probe label that covers this device
func (d Device) ProbeLabel() string {
	return fmt.Sprintf("gpu%d", d.Index)
}

// Inventory lists the accelerators visible through NVML. A node without the
// library or without devices yields an empty slice.
func Inventory(logger *slog.Logger) []Device {
	return inventory(logger, newRealNvmlLib())
}

func inventory(logger *slog.Logger, lib nvmlLib) []Device {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "nvml")

	devices, err := discover(logger, lib)
	if err != nil {
		logger.Debug("accelerator inventory unavailable", "error", err)
		return []Device{}
	}
	if len(devices) == 0 {
		logger.Debug("no accelerators found")
	}
	return devices
}

func discover(logger *slog.Logger, lib nvmlLib) ([]Device, error) {
	if ret := lib.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("%w: init failed: %s", ErrNVMLUnavailable, lib.ErrorString(ret))
	}
	defer func() {
		if ret := lib.Shutdown(); ret != nvml.SUCCESS {
			logger.Warn("NVML shutdown failed", "error", lib.ErrorString(ret))
		}
	}()

	count, ret := lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("failed to get device count: %s", lib.ErrorString(ret))
	}

	devices := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		handle, ret := lib.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			logger.Warn("failed to get device handle", "index", i, "error", lib.ErrorString(ret))
			continue
		}

		uuid, ret := handle.GetUUID()
		if ret != nvml.SUCCESS {
			uuid = fmt.Sprintf("gpu-%d", i)
		}

		name, ret := handle.GetName()
		if ret != nvml.SUCCESS {
			name = "Unknown NVIDIA GPU"
		}

		devices = append(devices, Device{Index: i, UUID: uuid, Name: name})
		logger.Debug("discovered GPU", "index", i, "uuid", uuid, "name", name)
	}
	return devices, nil
}

// Names maps the probe label of each device to its product name
func Names(devices []Device) map[string]string {
	return lo.SliceToMap(devices, func(d Device) (string, string) {
		return d.ProbeLabel(), d.Name
	})
}
