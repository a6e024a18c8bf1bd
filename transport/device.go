package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// DeviceInfo identifies the installation to the server.
type DeviceInfo struct {
	DeviceID string `json:"deviceId"`
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// NewDeviceInfo returns device info with a random device id.
func NewDeviceInfo(platform, version string) DeviceInfo {
	return DeviceInfo{
		DeviceID: uuid.NewString(),
		Platform: platform,
		Version:  version,
	}
}

// Fingerprint is the hex SHA-256 of the JSON encoded device info.
func (d DeviceInfo) Fingerprint() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
