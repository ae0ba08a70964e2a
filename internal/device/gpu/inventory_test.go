// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package gpu

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockNvmlLib is a mock implementation of nvmlLib for testing
type mockNvmlLib struct {
	mock.Mock
}

func (m *mockNvmlLib) Init() nvml.Return {
	args := m.Called()
	return args.Get(0).(nvml.Return)
}

func (m *mockNvmlLib) Shutdown() nvml.Return {
	args := m.Called()
	return args.Get(0).(nvml.Return)
}

func (m *mockNvmlLib) DeviceGetCount() (int, nvml.Return) {
	args := m.Called()
	return args.Int(0), args.Get(1).(nvml.Return)
}

func (m *mockNvmlLib) DeviceGetHandleByIndex(index int) (nvmlDeviceHandle, nvml.Return) {
	args := m.Called(index)
	handle := args.Get(0)
	if handle == nil {
		return nil, args.Get(1).(nvml.Return)
	}
	return handle.(nvmlDeviceHandle), args.Get(1).(nvml.Return)
}

func (m *mockNvmlLib) ErrorString(ret nvml.Return) string {
	args := m.Called(ret)
	return args.String(0)
}

// mockDeviceHandle is a mock implementation of nvmlDeviceHandle for testing
type mockDeviceHandle struct {
	mock.Mock
}

func (m *mockDeviceHandle) GetUUID() (string, nvml.Return) {
	args := m.Called()
	return args.String(0), args.Get(1).(nvml.Return)
}

func (m *mockDeviceHandle) GetName() (string, nvml.Return) {
	args := m.Called()
	return args.String(0), args.Get(1).(nvml.Return)
}

func newHandle(uuid, name string) *mockDeviceHandle {
	h := new(mockDeviceHandle)
	h.On("GetUUID").Return(uuid, nvml.SUCCESS)
	h.On("GetName").Return(name, nvml.SUCCESS)
	return h
}

func TestInventory(t *testing.T) {
	lib := new(mockNvmlLib)
	lib.On("Init").Return(nvml.SUCCESS)
	lib.On("DeviceGetCount").Return(2, nvml.SUCCESS)
	lib.On("DeviceGetHandleByIndex", 0).Return(newHandle("GPU-aaaa", "NVIDIA GH200 480GB"), nvml.SUCCESS)
	lib.On("DeviceGetHandleByIndex", 1).Return(newHandle("GPU-bbbb", "NVIDIA GH200 480GB"), nvml.SUCCESS)
	lib.On("Shutdown").Return(nvml.SUCCESS)

	devices := inventory(slog.Default(), lib)

	require.Len(t, devices, 2)
	assert.Equal(t, Device{Index: 0, UUID: "GPU-aaaa", Name: "NVIDIA GH200 480GB"}, devices[0])
	assert.Equal(t, Device{Index: 1, UUID: "GPU-bbbb", Name: "NVIDIA GH200 480GB"}, devices[1])
	lib.AssertExpectations(t)
}

func TestInventory_LibraryMissing(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lib := new(mockNvmlLib)
	lib.On("Init").Return(nvml.ERROR_LIBRARY_NOT_FOUND)
	lib.On("ErrorString", nvml.ERROR_LIBRARY_NOT_FOUND).Return("library not found")

	devices := inventory(logger, lib)

	assert.NotNil(t, devices)
	assert.Empty(t, devices)
	assert.Contains(t, buf.String(), "library not found")
	assert.Contains(t, buf.String(), "level=DEBUG")
	lib.AssertNotCalled(t, "Shutdown")
	lib.AssertNotCalled(t, "DeviceGetCount")
}

func TestDiscover_Errors(t *testing.T) {
	t.Run("init failure wraps sentinel", func(t *testing.T) {
		lib := new(mockNvmlLib)
		lib.On("Init").Return(nvml.ERROR_DRIVER_NOT_LOADED)
		lib.On("ErrorString", nvml.ERROR_DRIVER_NOT_LOADED).Return("driver not loaded")

		_, err := discover(slog.Default(), lib)
		assert.ErrorIs(t, err, ErrNVMLUnavailable)
		assert.ErrorContains(t, err, "driver not loaded")
	})

	t.Run("device count failure shuts down", func(t *testing.T) {
		lib := new(mockNvmlLib)
		lib.On("Init").Return(nvml.SUCCESS)
		lib.On("DeviceGetCount").Return(0, nvml.ERROR_UNKNOWN)
		lib.On("ErrorString", nvml.ERROR_UNKNOWN).Return("unknown error")
		lib.On("Shutdown").Return(nvml.SUCCESS)

		_, err := discover(slog.Default(), lib)
		assert.ErrorContains(t, err, "failed to get device count: unknown error")
		assert.NotErrorIs(t, err, ErrNVMLUnavailable)
		lib.AssertCalled(t, "Shutdown")
	})
}

func TestDiscover_Fallbacks(t *testing.T) {
	lib := new(mockNvmlLib)
	lib.On("Init").Return(nvml.SUCCESS)
	lib.On("DeviceGetCount").Return(3, nvml.SUCCESS)
	lib.On("ErrorString", mock.Anything).Return("error")
	lib.On("Shutdown").Return(nvml.ERROR_UNKNOWN)

	// handle lookup fails for device 0
	lib.On("DeviceGetHandleByIndex", 0).Return(nil, nvml.ERROR_GPU_IS_LOST)

	// device 1 answers neither UUID nor name
	silent := new(mockDeviceHandle)
	silent.On("GetUUID").Return("", nvml.ERROR_NOT_SUPPORTED)
	silent.On("GetName").Return("", nvml.ERROR_NOT_SUPPORTED)
	lib.On("DeviceGetHandleByIndex", 1).Return(silent, nvml.SUCCESS)

	lib.On("DeviceGetHandleByIndex", 2).Return(newHandle("GPU-cccc", "NVIDIA H100"), nvml.SUCCESS)

	devices, err := discover(slog.Default(), lib)
	require.NoError(t, err, "shutdown failure must not fail the inventory")

	assert.Equal(t, []Device{
		{Index: 1, UUID: "gpu-1", Name: "Unknown NVIDIA GPU"},
		{Index: 2, UUID: "GPU-cccc", Name: "NVIDIA H100"},
	}, devices)
}

func TestInventory_NoDevices(t *testing.T) {
	lib := new(mockNvmlLib)
	lib.On("Init").Return(nvml.SUCCESS)
	lib.On("DeviceGetCount").Return(0, nvml.SUCCESS)
	lib.On("Shutdown").Return(nvml.SUCCESS)

	devices := inventory(nil, lib)
	assert.Empty(t, devices)
	lib.AssertExpectations(t)
}

func TestNames(t *testing.T) {
	names := Names([]Device{
		{Index: 0, UUID: "GPU-aaaa", Name: "NVIDIA A100"},
		{Index: 3, UUID: "GPU-dddd", Name: "NVIDIA H100"},
	})
	assert.Equal(t, map[string]string{"gpu0": "NVIDIA A100", "gpu3": "NVIDIA H100"}, names)
	assert.Empty(t, Names(nil))
}
