package build

import "path/filepath"

// Name returns the build name for one file of an invocation. A single file
// keeps the template as is; with several files the file name is appended so
// the builds can be told apart.
func Name(template, filePath string, fileCount int) string {
	if fileCount <= 1 {
		return template
	}
	return template + " - " + filepath.Base(filePath)
}
