package build

import (
	"os"

	"github.com/gioco-play/easy-i18n/i18n"
)

// FileInfo describes an artifact about to be uploaded
type FileInfo struct {
	Path         string
	Size         int64
	IsValid      bool   // whether it is a readable regular file
	ErrorMessage string // reason when IsValid is false
}

// ValidateFile checks that filePath is a readable regular file and records its size
func ValidateFile(filePath string) *FileInfo {
	info := &FileInfo{Path: filePath}

	stat, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		info.ErrorMessage = i18n.Sprintf("File does not exist: %s", filePath)
		return info
	}
	if err != nil {
		info.ErrorMessage = i18n.Sprintf("Cannot stat file: %v", err)
		return info
	}
	if stat.IsDir() {
		info.ErrorMessage = i18n.Sprintf("Path is a directory: %s", filePath)
		return info
	}
	if !stat.Mode().IsRegular() {
		info.ErrorMessage = i18n.Sprintf("Not a regular file: %s", filePath)
		return info
	}

	file, err := os.Open(filePath)
	if err != nil {
		info.ErrorMessage = i18n.Sprintf("Cannot open file: %v", err)
		return info
	}
	file.Close()

	info.Size = stat.Size()
	info.IsValid = true
	return info
}
