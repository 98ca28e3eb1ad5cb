// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package pkginfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strings"
)

// Version is stamped via -ldflags on release builds; plain go-build
// binaries report "dev" plus whatever VCS metadata the toolchain
// embedded.
var Version = "dev"

// Info describes one built binary.
type Info struct {
	Name      string
	Version   string
	Commit    string
	CommitAt  string
	GoVersion string
	Platform  string
}

// Current assembles build information for the named binary, filling
// commit details from the VCS stamps in the embedded build info when
// present.
func Current(name string) Info {
	info := Info{
		Name:      name,
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	modified := false

	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			info.Commit = setting.Value
		case "vcs.time":
			info.CommitAt = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if modified && info.Commit != "" {
		info.Commit += "-dirty"
	}

	return info
}

func (info Info) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s\n", info.Name, info.Version, info.Platform)
	fmt.Fprintf(&b, "built with %s", info.GoVersion)

	if info.Commit != "" {
		fmt.Fprintf(&b, "\ncommit %s", info.Commit)
	}

	if info.CommitAt != "" {
		fmt.Fprintf(&b, " (%s)", info.CommitAt)
	}

	return b.String()
}

// Dependencies returns the modules linked into this binary as
// `path="version"` pairs, sorted by path.
func Dependencies() []string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(buildInfo.Deps))
	for _, dep := range buildInfo.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}

	sort.Strings(deps)

	return deps
}
