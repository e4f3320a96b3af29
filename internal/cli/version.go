package cli

import (
	"fmt"
	"io"

	"github.com/autobrr/go-mediafix/internal/media"
)

func SetVersion(version string) {
	media.SetAppVersion(version)
}

func Version(stdout io.Writer) {
	fmt.Fprintf(stdout, "%s, %s\n", media.AppName, media.FormatVersion(media.AppVersion))
}
