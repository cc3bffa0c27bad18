package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchDevice(t *testing.T) {
	devices := []DeviceInfo{
		{Index: 0, Name: "HDA Intel PCH"},
		{Index: 1, Name: "USB Headset Mic", IsDefault: true},
	}

	d, err := MatchDevice(devices, "")
	require.NoError(t, err)
	assert.Equal(t, "USB Headset Mic", d.Name)

	d, err = MatchDevice(devices, "intel")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Index)

	_, err = MatchDevice(devices, "webcam")
	assert.Error(t, err)

	_, err = MatchDevice(nil, "")
	assert.Error(t, err)

	assert.Equal(t, "2. USB Headset Mic [DEFAULT]", devices[1].String())
}
