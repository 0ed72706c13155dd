// Package settings provides build metadata, per-run configuration, and
// context helpers shared by the rowpick CLI and its library packages.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "rowpick"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the settings of a single invocation.
type Run struct {
	MinLogLevel int8
	IsQuiet     bool
	NoColor     bool
	Interactive bool
	// Output is the rendering format of picked rows (table, json, yaml, csv, tsv).
	Output string
}

// NewCliParams returns the defaults used when rowpick runs from the command line.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		IsQuiet:     false,
		NoColor:     false,
		Interactive: false,
		Output:      "table",
	}
}
