// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Set at build time via -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString is the one-line form used by "mathai --version".
func VersionString() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Truncate(Sha, 12), Buildtime)
}
