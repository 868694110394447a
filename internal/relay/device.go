package relay

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DeviceInfoPath is the query the device answers with its identity.
const DeviceInfoPath = "device-info"

const maxFieldLength = 128

var fieldPolicy = bluemonday.StrictPolicy()

// DeviceSummary is the identity a device reports about itself.
type DeviceSummary struct {
	Valid           bool   `json:"valid"`
	Address         string `json:"address"`
	Name            string `json:"name,omitempty"`
	Model           string `json:"model,omitempty"`
	Serial          string `json:"serial,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	PowerMode       string `json:"power_mode,omitempty"`
}

// Describe queries device-info and summarizes it. A device that answers but
// not with a 2xx status yields Valid=false. The Outcome is returned so the
// caller can report unreachable devices.
func (r *Relay) Describe(ctx context.Context, address string) (DeviceSummary, Outcome, error) {
	outcome, err := r.Query(ctx, address, DeviceInfoPath)
	if err != nil {
		return DeviceSummary{}, outcome, err
	}

	addr, _ := NormalizeAddress(address)
	if outcome.Kind != KindSuccess {
		return DeviceSummary{Address: addr}, outcome, nil
	}

	summary, err := ParseDeviceInfo(outcome.Response.Body)
	if err != nil {
		return DeviceSummary{Address: addr}, outcome, nil
	}
	summary.Address = addr
	return summary, outcome, nil
}

// ParseDeviceInfo extracts the summary fields from a device-info document.
func ParseDeviceInfo(body []byte) (DeviceSummary, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return DeviceSummary{}, fmt.Errorf("parse device-info: %w", err)
	}

	root := doc.Find("device-info").First()
	if root.Length() == 0 {
		return DeviceSummary{}, fmt.Errorf("parse device-info: no device-info element")
	}

	field := func(names ...string) string {
		for _, name := range names {
			if v := cleanField(root.Find(name).First().Text()); v != "" {
				return v
			}
		}
		return ""
	}

	return DeviceSummary{
		Valid:           true,
		Name:            field("friendly-device-name", "user-device-name", "device-name"),
		Model:           field("model-name", "friendly-model-name", "model-number"),
		Serial:          field("serial-number"),
		SoftwareVersion: field("software-version"),
		PowerMode:       field("power-mode"),
	}, nil
}

// cleanField strips markup a device may have stored in a user-editable name.
func cleanField(s string) string {
	s = html.UnescapeString(fieldPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxFieldLength {
		s = string([]rune(s)[:maxFieldLength])
	}
	return s
}
