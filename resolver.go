// Copyright 2021 The revdb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package revdb

import (
	"path/filepath"
)

// ResourceResolver maps a logical resource name to a file path.
type ResourceResolver interface {
	ResolvePath(name string) string
}

// ResourceType describes a family of resources sharing a naming scheme.
type ResourceType struct {
	Name   string
	Prefix string
	Suffix string
}

// ReverseDbResourceType names reverse db files: "<name>.reverse.bin".
var ReverseDbResourceType = ResourceType{
	Name:   "reverse_db",
	Prefix: "",
	Suffix: ".reverse.bin",
}

// DirResolver resolves resources of one type inside a directory.
type DirResolver struct {
	Dir  string
	Type ResourceType
}

// NewDeployedResolver resolves reverse db files inside a deployment directory.
func NewDeployedResolver(dir string) *DirResolver {
	return &DirResolver{Dir: dir, Type: ReverseDbResourceType}
}

func (r *DirResolver) ResolvePath(name string) string {
	return filepath.Join(r.Dir, r.Type.Prefix+name+r.Type.Suffix)
}
