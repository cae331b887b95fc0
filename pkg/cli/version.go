package cli

import (
	"fmt"

	"github.com/blang/semver"
)

// Version is the release version, set at build time with
// -ldflags "-X github.com/Fepozopo/siox/pkg/cli.Version=x.y.z".
var Version = "0.1.0"

// Repo is the GitHub repository queried for updates.
const Repo = "Fepozopo/siox"

func currentVersion() (semver.Version, error) {
	return semver.ParseTolerant(Version)
}

func (a *app) version(args []string) error {
	v, err := currentVersion()
	if err != nil {
		fmt.Fprintf(a.stdout, "siox %s (not a semantic version)\n", Version)
		return nil
	}
	fmt.Fprintf(a.stdout, "siox %s\n", v)
	return nil
}
