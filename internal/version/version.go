package version

import (
	"runtime/debug"
	"strings"
	"sync"
)

const Header = "X-Bnotif-Version"

const (
	versionDevel   = "devel"
	versionUnknown = "unknown"

	product = "bnotif"
)

// version is set via ldflags at build time.
// falls back to debug.ReadBuildInfo for go install.
var version = versionDevel

var once sync.Once

func Get() string {
	once.Do(func() {
		if version != versionDevel {
			return
		}
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if v := info.Main.Version; v != "" && v != "("+versionDevel+")" {
			version = v
		}
	})
	return version
}

// UserAgent formats the User-Agent sent on every API request.
func UserAgent(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		v = versionUnknown
	}
	return product + "/" + v
}
