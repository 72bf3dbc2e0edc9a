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

// Package doc extracts magic-comment tags from method documentation.
package doc

import (
	"go/ast"
	"regexp"
	"strings"
)

const (
	// Namespace is the default prefix of every tag.
	Namespace = "bouncer"
	// AllowOnlyFrom names a type which may call the documented method.
	// It may be repeated to build up an allowlist.
	AllowOnlyFrom = "allow-only-from"
)

// Example:
//
//	//bouncer:allow-only-from SomeType
//	/* bouncer:allow-only-from github.com/org/pkg.SomeType */
var tagSyntax = regexp.MustCompile(
	`^(?://|/\*|\*)?[[:space:]]*([[:alnum:]_]+):([[:alnum:]_-]+)(.*?)(?:\*/)?[[:space:]]*$`)

//  ^ Optional leading comment marker or block-comment gutter
//              ^ Ignore leading WS
//               The namespace, an ident ^
//                               The tag name ^
//                                       The value, non-greedy ^
//                                             Ignore closing block comment ^

// A Tag is a single name:value pair extracted from a comment.
type Tag struct {
	// The tag name, without its namespace.
	Name string
	// The first whitespace-delimited token after the tag name, which may
	// be empty.
	Value string
}

// A Parser turns raw documentation text into tags.
type Parser interface {
	Parse(text string) []Tag
}

// CommentParser recognizes tags written as "namespace:name value".
type CommentParser struct {
	// Defaults to Namespace if empty.
	Namespace string
}

var _ Parser = CommentParser{}

// Parse implements Parser. Tags are returned in document order.
func (p CommentParser) Parse(text string) []Tag {
	ns := p.Namespace
	if ns == "" {
		ns = Namespace
	}

	var ret []Tag
	for _, line := range strings.Split(text, "\n") {
		match := tagSyntax.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil || match[1] != ns {
			continue
		}
		// The tag name must be immediately followed by whitespace or by
		// the end of the line, otherwise "ns:name,junk" would match.
		rest := match[3]
		if rest != "" && !strings.ContainsAny(rest[:1], " \t") {
			continue
		}
		tag := Tag{Name: match[2]}
		if fields := strings.Fields(rest); len(fields) > 0 {
			tag.Value = fields[0]
		}
		ret = append(ret, tag)
	}
	return ret
}

// Raw returns the source text of a comment group, markers included.
// Unlike ast.CommentGroup.Text, directive-style comments are retained.
func Raw(group *ast.CommentGroup) string {
	if group == nil {
		return ""
	}
	lines := make([]string, len(group.List))
	for i, comment := range group.List {
		lines[i] = comment.Text
	}
	return strings.Join(lines, "\n")
}
