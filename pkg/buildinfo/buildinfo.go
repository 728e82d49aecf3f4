/*
Copyright 2014 The Perkeep Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package buildinfo provides information about the current build.
package buildinfo

import "flag"

// GitInfo is either the empty string (the default) or is set to the git
// hash of the most recent commit using the -X linker flag. For example:
// $ go install --ldflags="-X github.com/minikeydb/minikeydb/pkg/buildinfo.GitInfo=`git rev-parse HEAD`" ./cmd/...
var GitInfo string

// versionString is a string like "0.10" or "1.0", if applicable, set the
// same way as GitInfo.
var versionString string

// Version returns the version string, or "unknown" if the linker flag
// wasn't provided.
func Version() string {
	if versionString == "" {
		return "unknown"
	}
	return versionString
}

// Summary returns the version and/or git hash of this binary.
func Summary() string {
	if versionString != "" && GitInfo != "" {
		return versionString + ", " + GitInfo
	}
	if GitInfo != "" {
		return GitInfo
	}
	if versionString != "" {
		return versionString
	}
	return "unknown"
}

// TestingLinked reports whether the "testing" package is linked into the binary.
func TestingLinked() bool {
	return flag.CommandLine.Lookup("test.v") != nil
}
