package menu

import "time"

// Device classes reported with a scan.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// ScanMetadata accompanies a QR scan registration.
type ScanMetadata struct {
	SessionID  string    `json:"session_id"`
	UserAgent  string    `json:"user_agent"`
	DeviceType string    `json:"device_type"`
	AccessedAt time.Time `json:"accessed_at"`
}

// ScanResult is what the backend returns for a registered scan. Menu is set
// only when the backend embedded the full menu in the response.
type ScanResult struct {
	QR   QRInfo   `json:"qr_info"`
	Menu *Payload `json:"menu,omitempty"`
}
