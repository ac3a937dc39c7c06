package entities

// DeviceInfo describes one enumerated audio device.
type DeviceInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}
