/*
Copyright 2014 The Camlistore Authors

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

package buildinfo

import "testing"

func TestTestingLinked(t *testing.T) {
	if !TestingLinked() {
		t.Error("TestingLinked = false; want true when running under go test")
	}
}

func TestVersionUnknownByDefault(t *testing.T) {
	versionString = ""
	GitInfo = ""
	if got := Version(); got != "unknown" {
		t.Errorf("Version() = %q; want %q", got, "unknown")
	}
	if got := Summary(); got != "unknown" {
		t.Errorf("Summary() = %q; want %q", got, "unknown")
	}
}

func TestSummaryCombinesVersionAndGit(t *testing.T) {
	versionString = "1.0"
	GitInfo = "deadbeef"
	defer func() { versionString, GitInfo = "", "" }()
	if got, want := Summary(), "1.0, deadbeef"; got != want {
		t.Errorf("Summary() = %q; want %q", got, want)
	}
}
