package version

import "fmt"

// Overridden at build time via -ldflags "-X suffixrank/internal/app/version.buildVersion=...".
var (
	buildVersion = "dev"
	builtAt      = "unknown"
)

// Info is the running build metadata.
type Info struct {
	BuildVersion string `json:"buildVersion"`
	BuiltAt      string `json:"builtAt"`
}

func Get() Info {
	return Info{
		BuildVersion: buildVersion,
		BuiltAt:      builtAt,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("suffixrank %s (built %s)", i.BuildVersion, i.BuiltAt)
}
