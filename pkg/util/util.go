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

// Package util contains naming helpers shared by the drivers.
package util

import (
	"go/types"
	"strings"
)

// PkgPath returns the import path of the package, with any vendoring
// prefix removed, so that a vendored copy of a package is named the same
// as the original.
func PkgPath(pkg *types.Package) string {
	if pkg == nil {
		return ""
	}
	path := pkg.Path()
	if idx := strings.LastIndex(path, "/vendor/"); idx >= 0 {
		return path[idx+len("/vendor/"):]
	}
	return strings.TrimPrefix(path, "vendor/")
}

// Qualified returns the fully-qualified name of a type, such as
// "github.com/example/shop.Order". Predeclared types have no package.
func Qualified(obj *types.TypeName) string {
	if path := PkgPath(obj.Pkg()); path != "" {
		return path + "." + obj.Name()
	}
	return obj.Name()
}

// NamedOf strips pointers from the type and returns the *types.Named
// that remains, if any. Instantiated generic types are mapped back to
// their origin.
func NamedOf(typ types.Type) *types.Named {
	for {
		switch t := types.Unalias(typ).(type) {
		case *types.Pointer:
			typ = t.Elem()
		case *types.Named:
			return t.Origin()
		default:
			return nil
		}
	}
}
