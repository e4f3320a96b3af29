package media

import "strings"

const (
	AppName = "go-mediafix"
	AppURL  = "https://github.com/autobrr/go-mediafix"
)

var AppVersion = "dev"

func SetAppVersion(version string) {
	if version != "" {
		AppVersion = version
	}
}

func FormatVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" || version == "dev" {
		return "dev"
	}
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
