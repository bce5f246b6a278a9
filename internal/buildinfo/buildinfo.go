// Package buildinfo carries version stamps set with -ldflags -X.
package buildinfo

import "runtime"

var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

// Info returns the stamps plus the Go runtime version.
func Info() map[string]string {
    return map[string]string{
        "service":   "riskroute",
        "version":   Version,
        "commit":    Commit,
        "builtAt":   BuiltAt,
        "goVersion": runtime.Version(),
    }
}
