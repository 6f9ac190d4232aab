package analytics

import "strings"

// Device type values stored on events.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// DeviceFromUserAgent sniffs a coarse device type from the User-Agent.
// Used only when the tracking request did not self-report a device type.
func DeviceFromUserAgent(ua string) string {
	lower := strings.ToLower(ua)

	// Tablet checks first: iPads and Android tablets also match mobile tokens.
	if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		return DeviceTablet
	}
	if strings.Contains(lower, "mobi") ||
		strings.Contains(lower, "iphone") ||
		strings.Contains(lower, "android") {
		return DeviceMobile
	}
	return DeviceDesktop
}

// BrowserFromUserAgent sniffs a browser family from the User-Agent.
// Token order matters: Edge and Opera also advertise Chrome, and Chrome
// advertises Safari.
func BrowserFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/") || strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "OPR/") || strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/") || strings.Contains(ua, "CriOS/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	case ua == "":
		return ""
	default:
		return "Other"
	}
}
