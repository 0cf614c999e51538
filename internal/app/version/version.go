// Package version carries build metadata injected via -ldflags.
package version

type Info struct {
	Version string `json:"version"`
	BuiltAt string `json:"built_at,omitempty"`
}

var (
	buildVersion = "dev"
	builtAt      = ""
)

func GetInfo() Info {
	return Info{
		Version: buildVersion,
		BuiltAt: builtAt,
	}
}
