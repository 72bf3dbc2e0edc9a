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

package rt

import (
	"bufio"
	"context"
	"go/token"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/cockroachdb/bouncer/pkg/allow"
	"github.com/stretchr/testify/assert"
)

const fixture = "github.com/cockroachdb/bouncer/pkg/rt/testdata"

// markedLines returns the lines of the file which end with one of the
// given comments.
func markedLines(t *testing.T, path string, markers ...string) []int {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var ret []int
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		for _, marker := range markers {
			if strings.HasSuffix(scanner.Text(), "// "+marker) {
				ret = append(ret, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	sort.Ints(ret)
	return ret
}

// This test creates a statically-configured Enforcer using the fixture
// package.
func Test(t *testing.T) {
	restricted := allow.MethodIdentity{Type: fixture + ".AnEntity", Method: "RestrictedSetter"}
	unrestricted := allow.MethodIdentity{Type: fixture + ".AnEntity", Method: "SetSomething"}

	// Each case maps the fixture files to the markers which denote
	// the expected report lines.
	tcs := []struct {
		name     string
		enforcer Enforcer
		expect   map[string][]string
	}{
		{
			name: "default",
			expect: map[string][]string{
				"entity.go":          {"flagged"},
				"entity_excluded.go": {"flagged without config"},
			},
		},
		{
			name:     "config",
			enforcer: Enforcer{Config: "testdata/bouncer.toml"},
			expect: map[string][]string{
				"entity.go": {"flagged", "flagged by config"},
			},
		},
		{
			name:     "interfaces",
			enforcer: Enforcer{Interfaces: true},
			expect: map[string][]string{
				"entity.go":          {"flagged", "flagged with interfaces"},
				"entity_excluded.go": {"flagged without config"},
			},
		},
		{
			name:     "asserted interfaces",
			enforcer: Enforcer{Interfaces: true, AssertedInterfaces: true},
			expect: map[string][]string{
				"entity.go":          {"flagged", "flagged with interfaces"},
				"entity_excluded.go": {"flagged without config"},
			},
		},
		{
			name:     "tests",
			enforcer: Enforcer{Tests: true},
			expect: map[string][]string{
				"entity.go":          {"flagged"},
				"entity_excluded.go": {"flagged without config"},
				"entity_test.go":     {"flagged in tests"},
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			e := tc.enforcer
			e.Dir = "testdata"
			e.Logger = log.New(os.Stdout, "", 0)
			e.Packages = []string{"."}

			res, err := e.Execute(context.Background())
			if !a.NoError(err) {
				return
			}
			a.True(sort.IsSorted(res))

			lines := make(map[string][]int)
			for _, r := range res {
				file := filepath.Base(r.Pos.Filename)
				lines[file] = append(lines[file], r.Pos.Line)

				a.Equal(r.Message, allow.Message(r.Method, messageList(r.Message)))
				if r.Method == restricted {
					a.Equal("entity.go", filepath.Base(r.Declaration.Filename))
					a.Contains(r.Message, "\n- AnAggregate\n- AnotherAggregate")
				} else {
					a.Equal(unrestricted, r.Method)
				}
			}

			expected := make(map[string][]int)
			for file, markers := range tc.expect {
				expected[file] = markedLines(t, filepath.Join("testdata", file), markers...)
			}
			a.Equal(expected, lines)
		})
	}
}

// messageList recovers the allowlist from a formatted message.
func messageList(message string) allow.List {
	parts := strings.Split(message, "\n- ")
	return parts[1:]
}

func TestRestricted(t *testing.T) {
	a := assert.New(t)

	e := &Enforcer{
		Config:   "testdata/bouncer.toml",
		Dir:      "testdata",
		Packages: []string{"."},
	}
	found, err := e.Restricted(context.Background())
	if !a.NoError(err) || !a.Len(found, 2) {
		return
	}

	a.Equal(fixture+".AnEntity::RestrictedSetter", found[0].Method.String())
	a.Equal(allow.List{"AnAggregate", "AnotherAggregate"}, found[0].Allowed)
	a.True(strings.HasPrefix(found[0].Declaration, "entity.go:"), found[0].Declaration)

	a.Equal(fixture+".AnEntity::SetSomething", found[1].Method.String())
	a.Equal(allow.List{fixture + ".AnotherAggregate"}, found[1].Allowed)
	a.Contains(found[1].String(), "\n  - "+fixture+".AnotherAggregate")
}

func TestNoPackages(t *testing.T) {
	_, err := (&Enforcer{}).Execute(context.Background())
	assert.EqualError(t, err, "no packages specified")
}

func TestResultString(t *testing.T) {
	a := assert.New(t)

	r := Result{
		Message: "Call to a.T::M is authorized only from:\n- a.U",
		Pos:     posAt("/src/a/a.go", 3, 4),
	}
	a.Equal("a/a.go:3:4: Call to a.T::M is authorized only from:\n  - a.U", r.StringRelative("/src"))

	r.Declaration = posAt("/src/a/t.go", 1, 1)
	a.Equal("/src/a/a.go:3:4: Call to a.T::M is authorized only from:\n  - a.U\n  declared at /src/a/t.go:1:1",
		r.String())
}

func posAt(filename string, line, column int) token.Position {
	return token.Position{Filename: filename, Line: line, Column: column}
}
