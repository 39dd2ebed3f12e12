package buildinfo

import "runtime/debug"

// Version returns the module version stamped into the binary, or
// "dev" for local builds.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
