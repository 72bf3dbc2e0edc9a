// Copyright 2019 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Command bouncer reports calls of restricted methods which are made
// from types outside of the method's allowlist.
//
//	bouncer enforce --set_exit_status ./...
//	bouncer restricted ./...
package main

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/bouncer/pkg/rt"
)

func main() {
	exec, err := os.Executable()
	if err == nil {
		exec = filepath.Base(exec)
	} else {
		exec = "bouncer"
	}
	(&rt.Enforcer{Name: exec}).Main()
}
