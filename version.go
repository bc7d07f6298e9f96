package console

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// DevVersion is the version string of development builds.
const DevVersion = "dev"

// BuildVersion is set at build time.
var BuildVersion = DevVersion

// metadataV3Version is the first engine release serving multiple sources.
const metadataV3Version = "v2.0.0-alpha.1"

type Version struct {
	CLI       string
	CLISemver *semver.Version

	Server       string
	ServerSemver *semver.Version
}

func NewVersion() *Version {
	v := &Version{}
	v.SetCLIVersion(BuildVersion)
	return v
}

func (v *Version) SetCLIVersion(s string) {
	sv, _ := semver.NewVersion(s)
	v.CLI = s
	if sv != nil {
		v.CLI = fmt.Sprintf("v%s", sv.String())
	}
	v.CLISemver = sv
}

func (v *Version) SetServerVersion(s string) {
	sv, _ := semver.NewVersion(s)
	v.Server = s
	if sv != nil {
		v.Server = fmt.Sprintf("v%s", sv.String())
	}
	v.ServerSemver = sv
}

// HasMetadataV3 reports whether the server speaks metadata v3. Untagged
// server builds are assumed to be recent.
func (v *Version) HasMetadataV3() (bool, error) {
	if v.ServerSemver == nil {
		return true, nil
	}
	c, err := semver.NewConstraint(">= " + metadataV3Version)
	if err != nil {
		return false, errors.Wrap(err, "building metadata v3 constraint failed")
	}
	return c.Check(v.ServerSemver), nil
}

// CheckServerCompatibility compares the console and server versions.
func (v *Version) CheckServerCompatibility() (compatible bool, reason string) {
	switch {
	case v.CLI == DevVersion:
		return true, "dev version of console, there could be inconsistencies"
	case v.CLI == "":
		return false, "console version is empty, indicates a broken build"
	case v.Server == "":
		return true, "server with no version treated as pre-release build"
	case v.ServerSemver == nil:
		if v.CLI == v.Server {
			return true, "untagged build, there could be inconsistencies"
		}
		return false, "untagged build, there could be inconsistencies"
	case v.CLISemver == nil:
		return true, "untagged console build can work with tagged server build"
	}
	if v.CLISemver.Major() > v.ServerSemver.Major() ||
		(v.CLISemver.Major() == v.ServerSemver.Major() && v.CLISemver.Minor() >= v.ServerSemver.Minor()) {
		return true, "older console version might not be compatible with latest server apis, please update"
	}
	return false, "older console version might not be compatible with latest server apis, please update"
}

var channelTag = regexp.MustCompile(`^[a-z]+`)

// AssetsVersion is the path segment the console assets are published under
// for the server version: channel/stable/v2.1 for v2.1.3, channel/beta/v2.0
// for v2.0.0-beta.2, versioned/<v> for untagged builds.
func (v *Version) AssetsVersion() string {
	if v.Server == "" {
		return "versioned/" + DevVersion
	}
	if v.ServerSemver == nil {
		return "versioned/" + v.Server
	}
	channel := "stable"
	if tag := channelTag.FindString(v.ServerSemver.Prerelease()); tag != "" {
		channel = tag
	}
	return fmt.Sprintf("channel/%s/v%d.%d", channel, v.ServerSemver.Major(), v.ServerSemver.Minor())
}
