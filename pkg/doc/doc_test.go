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

package doc

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tcs := []struct {
		name     string
		text     string
		expected []Tag
	}{
		{
			name: "line comments",
			text: "// RestrictedSetter does things.\n" +
				"//\n" +
				"//bouncer:allow-only-from AnAggregate\n" +
				"// bouncer:allow-only-from AnotherAggregate",
			expected: []Tag{
				{Name: AllowOnlyFrom, Value: "AnAggregate"},
				{Name: AllowOnlyFrom, Value: "AnotherAggregate"},
			},
		},
		{
			name: "block comment",
			text: "/* bouncer:allow-only-from github.com/example/shop.Cart */",
			expected: []Tag{
				{Name: AllowOnlyFrom, Value: "github.com/example/shop.Cart"},
			},
		},
		{
			name: "multiline block comment",
			text: "/*\n" +
				" * Some prose.\n" +
				" * bouncer:allow-only-from Cart\n" +
				"   bouncer:allow-only-from Checkout\n" +
				"*/",
			expected: []Tag{
				{Name: AllowOnlyFrom, Value: "Cart"},
				{Name: AllowOnlyFrom, Value: "Checkout"},
			},
		},
		{
			name: "trailing prose is ignored",
			text: "//bouncer:allow-only-from Cart because reasons",
			expected: []Tag{
				{Name: AllowOnlyFrom, Value: "Cart"},
			},
		},
		{
			name: "missing value",
			text: "//bouncer:allow-only-from",
			expected: []Tag{
				{Name: AllowOnlyFrom},
			},
		},
		{
			name: "other tags",
			text: "//bouncer:something-else Foo\n//bouncer:allow-only-from Bar",
			expected: []Tag{
				{Name: "something-else", Value: "Foo"},
				{Name: AllowOnlyFrom, Value: "Bar"},
			},
		},
		{
			name: "other namespaces",
			text: "//go:noinline\n//contract:CanGoHere\n//nolint:errcheck",
		},
		{
			name: "prose and urls",
			text: "// See https://example.com/bouncer:allow-only-from for details.\n" +
				"// The bouncer: allow-only-from prose",
		},
		{
			name: "garbage after tag name",
			text: "//bouncer:allow-only-from,Cart",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CommentParser{}.Parse(tc.text))
		})
	}
}

func TestParseNamespace(t *testing.T) {
	a := assert.New(t)
	p := CommentParser{Namespace: "club"}
	a.Equal([]Tag{{Name: AllowOnlyFrom, Value: "Cart"}},
		p.Parse("//club:allow-only-from Cart\n//bouncer:allow-only-from Checkout"))
}

func TestRaw(t *testing.T) {
	a := assert.New(t)

	const src = `package p

type T struct{}

// Foo is documented.
//bouncer:allow-only-from Cart
func (T) Foo() {}
`
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "p.go", src, parser.ParseComments)
	if !a.NoError(err) {
		return
	}
	fn := file.Decls[1].(*ast.FuncDecl)

	// The directive-style line is dropped by Text(), but not by Raw().
	a.NotContains(fn.Doc.Text(), "bouncer:")
	a.Equal("// Foo is documented.\n//bouncer:allow-only-from Cart", Raw(fn.Doc))
	a.Equal("", Raw(nil))
}
