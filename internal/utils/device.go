package utils

import (
	"strings"

	"github.com/mssola/user_agent"
)

// DeviceName derives a human label such as "Chrome on Windows 10" from a
// user agent string.
func DeviceName(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return "Unknown device"
	}

	parsed := user_agent.New(ua)
	browser, _ := parsed.Browser()
	os := parsed.OS()

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}
