package useragent

import (
	"fmt"

	"github.com/avct/uasurfer"
)

type Info struct {
	Device  string `json:"device"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Locale  string `json:"locale"`
}

// Parse classifies a User-Agent header for audit metadata. SDK and CLI
// clients surface as unrecognized devices and yield nil; callers treat that
// as "no user agent info" rather than an error.
func Parse(uaString string, acceptLanguage string) *Info {
	ua := uasurfer.Parse(uaString)

	device := "Unknown"
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "Computer"
	case uasurfer.DeviceTablet:
		device = "Tablet"
	case uasurfer.DevicePhone:
		device = "Phone"
	case uasurfer.DeviceConsole:
		device = "Console"
	case uasurfer.DeviceWearable:
		device = "Wearable"
	case uasurfer.DeviceTV:
		device = "TV"
	default:
		return nil
	}

	os := fmt.Sprintf("%s %d.%d", ua.OS.Name.String(), ua.OS.Version.Major, ua.OS.Version.Minor)

	browser := fmt.Sprintf("%s %d.%d", ua.Browser.Name.String(), ua.Browser.Version.Major, ua.Browser.Version.Minor)

	locale := ""
	if len(acceptLanguage) > 0 {
		for i := 0; i < len(acceptLanguage); i++ {
			if acceptLanguage[i] == ',' {
				locale = acceptLanguage[:i]
				break
			}
		}
		if locale == "" {
			locale = acceptLanguage
		}
	}

	return &Info{
		Device:  device,
		OS:      os,
		Browser: browser,
		Locale:  locale,
	}
}
