package main

import (
	"runtime/debug"
)

// set with -ldflags "-X main.app_ver=..."
var app_ver string = ""

// app_version prefers the module version recorded by go install, then the
// ldflags value, and reports "devel" for plain local builds.
func app_version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	if app_ver != "" {
		return app_ver
	}
	return "devel"
}
