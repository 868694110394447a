package relay

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDeviceInfo = `<?xml version="1.0" encoding="UTF-8" ?>
<device-info>
	<udn>29380000-0800-1025-80a4-d83154332d7e</udn>
	<serial-number>X004000AAAAA</serial-number>
	<vendor-name>Roku</vendor-name>
	<model-name>Roku Ultra</model-name>
	<model-number>4800X</model-number>
	<friendly-device-name>Living Room &lt;b&gt;TV&lt;/b&gt;</friendly-device-name>
	<software-version>11.5.0</software-version>
	<power-mode>PowerOn</power-mode>
</device-info>`

func TestParseDeviceInfo(t *testing.T) {
	summary, err := ParseDeviceInfo([]byte(sampleDeviceInfo))
	require.NoError(t, err)

	assert.True(t, summary.Valid)
	assert.Equal(t, "Living Room TV", summary.Name)
	assert.Equal(t, "Roku Ultra", summary.Model)
	assert.Equal(t, "X004000AAAAA", summary.Serial)
	assert.Equal(t, "11.5.0", summary.SoftwareVersion)
	assert.Equal(t, "PowerOn", summary.PowerMode)
}

func TestParseDeviceInfoFallbackFields(t *testing.T) {
	body := `<device-info><user-device-name>Den</user-device-name><model-number>3930X</model-number></device-info>`
	summary, err := ParseDeviceInfo([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "Den", summary.Name)
	assert.Equal(t, "3930X", summary.Model)
}

func TestParseDeviceInfoRejectsOtherDocuments(t *testing.T) {
	_, err := ParseDeviceInfo([]byte(`<apps><app id="12">Netflix</app></apps>`))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	device := &fakeDevice{handler: respond(http.StatusOK, sampleDeviceInfo, "text/xml")}
	r := newTestRelay(device)

	summary, outcome, err := r.Describe(context.Background(), "10.0.0.5")
	require.NoError(t, err)

	assert.Equal(t, KindSuccess, outcome.Kind)
	assert.True(t, summary.Valid)
	assert.Equal(t, "10.0.0.5", summary.Address)
	assert.Equal(t, "Roku Ultra", summary.Model)

	calls := device.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "http://10.0.0.5:8060/query/device-info", calls[0].URL.String())
}

func TestDescribeRejectedDevice(t *testing.T) {
	device := &fakeDevice{handler: respond(http.StatusForbidden, "", "")}
	r := newTestRelay(device)

	summary, outcome, err := r.Describe(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, KindRejected, outcome.Kind)
	assert.False(t, summary.Valid)
	assert.Equal(t, "10.0.0.5", summary.Address)
}

func TestDescribeUnreachableDevice(t *testing.T) {
	r := newTestRelay(&fakeDevice{handler: refuse})

	summary, outcome, err := r.Describe(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, KindUnreachable, outcome.Kind)
	assert.False(t, summary.Valid)
}

func TestDescribeInvalidAddress(t *testing.T) {
	device := &fakeDevice{handler: respond(http.StatusOK, sampleDeviceInfo, "")}
	r := newTestRelay(device)

	_, _, err := r.Describe(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.Empty(t, device.calls())
}
