package app

import (
	"fmt"
	"io"

	"github.com/emmett/voxnote/internal/audio"
)

// DeviceManager handles audio device selection and listing
type DeviceManager struct {
	list func() ([]audio.DeviceInfo, error)
	out  io.Writer
}

// NewDeviceManager lists system devices and writes to out
func NewDeviceManager(out io.Writer) *DeviceManager {
	return &DeviceManager{list: audio.ListDevices, out: out}
}

// ListDevices prints all available audio input devices
func (dm *DeviceManager) ListDevices() error {
	devices, err := dm.list()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(dm.out, "No audio capture devices found.")
		return fmt.Errorf("no devices found")
	}

	fmt.Fprintf(dm.out, "Found %d capture device(s):\n\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(dm.out, "  %s\n", d)
	}
	fmt.Fprintln(dm.out)
	fmt.Fprintln(dm.out, "To use a specific device, run:")
	fmt.Fprintf(dm.out, "  voxnote -device %q\n", devices[0].Name)
	return nil
}

// SelectDevice resolves name to a device, or the default when name is empty
func (dm *DeviceManager) SelectDevice(name string) (audio.DeviceInfo, error) {
	devices, err := dm.list()
	if err != nil {
		return audio.DeviceInfo{}, fmt.Errorf("failed to list devices: %w", err)
	}

	d, err := audio.MatchDevice(devices, name)
	if err != nil {
		fmt.Fprintln(dm.out, "Available devices:")
		for _, dev := range devices {
			fmt.Fprintf(dm.out, "  %s\n", dev)
		}
		return audio.DeviceInfo{}, err
	}
	return d, nil
}
