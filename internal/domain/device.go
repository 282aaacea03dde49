package domain

import "strings"

const KindVideoInput = "videoinput"

// Device mirrors a MediaDeviceInfo entry enumerated by the browser.
type Device struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
	Kind     string `json:"kind,omitempty"`
}

func (d Device) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return "Camera " + d.DeviceID
}

// IsRearFacing uses the same hints the browser exposes: a "back" label or an
// "environment" facing mode baked into the id.
func (d Device) IsRearFacing() bool {
	return strings.Contains(strings.ToLower(d.Label), "back") ||
		strings.Contains(d.DeviceID, "environment")
}

// IsVideoInput treats an empty kind as video, since callers often send only the cameras.
func (d Device) IsVideoInput() bool {
	return d.Kind == "" || d.Kind == KindVideoInput
}
