package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes an input device
type DeviceInfo struct {
	Index     int
	Name      string
	IsDefault bool
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	marker := ""
	if d.IsDefault {
		marker = " [DEFAULT]"
	}
	return fmt.Sprintf("%d. %s%s", d.Index+1, d.Name, marker)
}

// ListDevices returns all capture devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer freeContext(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// MatchDevice picks a device by case-insensitive partial name, or the
// default device when name is empty
func MatchDevice(devices []DeviceInfo, name string) (DeviceInfo, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, fmt.Errorf("no capture devices found")
	}

	if name == "" {
		for _, d := range devices {
			if d.IsDefault {
				return d, nil
			}
		}
		return devices[0], nil
	}

	search := strings.ToLower(name)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), search) {
			return d, nil
		}
	}
	return DeviceInfo{}, fmt.Errorf("no device found matching name: %s", name)
}
