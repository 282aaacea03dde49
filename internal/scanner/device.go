package scanner

import "github.com/diagnosis/checkin-kiosk/internal/domain"

// SelectDefaultDevice picks the camera the scanner opens first: a rear-facing
// video input if one exists, else the first video input.
func SelectDefaultDevice(devices []domain.Device) (domain.Device, error) {
	var first *domain.Device
	for i := range devices {
		d := devices[i]
		if !d.IsVideoInput() {
			continue
		}
		if d.IsRearFacing() {
			return d, nil
		}
		if first == nil {
			first = &devices[i]
		}
	}
	if first == nil {
		return domain.Device{}, domain.ErrNoCamera
	}
	return *first, nil
}

// VideoInputs filters devices down to cameras.
func VideoInputs(devices []domain.Device) []domain.Device {
	out := make([]domain.Device, 0, len(devices))
	for _, d := range devices {
		if d.IsVideoInput() {
			out = append(out, d)
		}
	}
	return out
}
