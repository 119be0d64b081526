// Package version holds build information, set with -ldflags -X.
package version

const Version = "0.1.0"

var (
	// Meta is appended to Version, e.g. "dev" or "rc1".
	Meta = "dev"

	Commit string
	Date   string

	VersionWithMeta = func() string {
		if Meta == "" {
			return Version
		}
		return Version + "-" + Meta
	}()
)
