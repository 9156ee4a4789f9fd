// SPDX-License-Identifier: MPL-2.0

package fsitem

import "path"

// VisitFiles calls fn for every file below d in depth-first name order.
// rel is the slash-separated path relative to d. A maxDepth of 0 visits
// only d's own files; a negative maxDepth is unbounded. skipDir, when
// non-nil, prunes directories it returns true for.
func (d *DirectoryItem) VisitFiles(maxDepth int, skipDir func(*DirectoryItem) bool, fn func(rel string, f *FileItem)) {
	d.visitFiles("", maxDepth, skipDir, fn)
}

func (d *DirectoryItem) visitFiles(prefix string, depth int, skipDir func(*DirectoryItem) bool, fn func(string, *FileItem)) {
	for _, file := range d.EnumerateFiles() {
		fn(path.Join(prefix, file.Name()), file)
	}
	if depth == 0 {
		return
	}
	for _, child := range d.EnumerateDirectories() {
		if skipDir != nil && skipDir(child) {
			continue
		}
		child.visitFiles(path.Join(prefix, child.Name()), depth-1, skipDir, fn)
	}
}
