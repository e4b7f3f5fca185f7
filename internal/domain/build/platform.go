package build

import (
	"fmt"
	"path/filepath"
	"strings"

	apperrors "nunu-cli/internal/pkg/errors"
)

// Platform is the target platform of a build, as understood by the backend
type Platform string

const (
	PlatformWindows      Platform = "windows"
	PlatformMacOS        Platform = "macos"
	PlatformLinux        Platform = "linux"
	PlatformAndroid      Platform = "android"
	PlatformIOSNative    Platform = "ios-native"
	PlatformIOSSimulator Platform = "ios-simulator"
	PlatformXbox         Platform = "xbox"
	PlatformPlaystation  Platform = "playstation"
)

// Platforms lists every platform accepted by the backend
var Platforms = []Platform{
	PlatformWindows,
	PlatformMacOS,
	PlatformLinux,
	PlatformAndroid,
	PlatformIOSNative,
	PlatformIOSSimulator,
	PlatformXbox,
	PlatformPlaystation,
}

func (p Platform) String() string {
	return string(p)
}

// ParsePlatform parses a platform name (case insensitive)
func ParsePlatform(s string) (Platform, error) {
	candidate := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, p := range Platforms {
		if p == candidate {
			return p, nil
		}
	}
	names := make([]string, len(Platforms))
	for i, p := range Platforms {
		names[i] = string(p)
	}
	return "", apperrors.NewConfigError(
		fmt.Sprintf("Invalid platform: '%s'. Valid platforms are: %s", s, strings.Join(names, ", ")), nil)
}

// InferPlatform guesses the platform from the file extension. Extensions
// shared by several platforms (.app bundles, archives) are rejected rather
// than guessed.
func InferPlatform(filePath string) (Platform, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))

	switch ext {
	case "exe", "msi":
		return PlatformWindows, nil
	case "dmg", "pkg":
		return PlatformMacOS, nil
	case "ipa":
		return PlatformIOSNative, nil
	case "apk":
		return PlatformAndroid, nil
	case "deb", "rpm", "appimage":
		return PlatformLinux, nil
	case "app":
		return "", apperrors.NewConfigError(
			"Cannot infer platform for .app files. Please specify --platform explicitly (macos or ios-simulator)", nil)
	case "zip", "tar", "gz", "7z", "tgz", "bz2":
		return "", apperrors.NewConfigError(
			fmt.Sprintf("Cannot infer platform for archive files (.%s). Please specify --platform explicitly", ext), nil)
	default:
		return "", apperrors.NewConfigError(
			fmt.Sprintf("Cannot infer platform from file extension '.%s'. Please specify --platform explicitly", ext), nil)
	}
}
