package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "nunu-cli/internal/pkg/errors"
	appi18n "nunu-cli/internal/pkg/i18n"
)

func TestMain(m *testing.M) {
	_ = appi18n.SetLang("en")
	os.Exit(m.Run())
}

func TestInferPlatform(t *testing.T) {
	tests := []struct {
		file string
		want Platform
	}{
		{"Game.exe", PlatformWindows},
		{"setup.MSI", PlatformWindows},
		{"game.apk", PlatformAndroid},
		{"game.ipa", PlatformIOSNative},
		{"Game.dmg", PlatformMacOS},
		{"installer.pkg", PlatformMacOS},
		{"game.deb", PlatformLinux},
		{"game.rpm", PlatformLinux},
		{"Game.AppImage", PlatformLinux},
		{"/builds/nightly/game.apk", PlatformAndroid},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := InferPlatform(tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferPlatformRefusesToGuess(t *testing.T) {
	tests := []struct {
		file    string
		message string
	}{
		{"Game.app", "macos or ios-simulator"},
		{"build.zip", "archive files (.zip)"},
		{"build.tar", "archive files (.tar)"},
		{"build.tar.gz", "archive files (.gz)"},
		{"build.7z", "archive files (.7z)"},
		{"build.tgz", "archive files (.tgz)"},
		{"build.bz2", "archive files (.bz2)"},
		{"build.bin", "file extension '.bin'"},
		{"README", "file extension '.'"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := InferPlatform(tt.file)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.Contains(t, err.Error(), tt.message)
			assert.Contains(t, err.Error(), "--platform")
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
		})
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range Platforms {
		got, err := ParsePlatform(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}

	got, err := ParsePlatform(" iOS-Simulator ")
	require.NoError(t, err)
	assert.Equal(t, PlatformIOSSimulator, got)

	_, err = ParsePlatform("switch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Valid platforms are: windows, macos, linux")
}

func TestParseDeletionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    DeletionPolicy
		wantErr bool
	}{
		{"least_recent", DeletionPolicyLeastRecent, false},
		{"least-recent", DeletionPolicyLeastRecent, false},
		{"OLDEST", DeletionPolicyOldest, false},
		{"newest", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDeletionPolicy(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Nightly", Name("Nightly", "out/game.apk", 1))
	assert.Equal(t, "Nightly - game.apk", Name("Nightly", "out/game.apk", 2))
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.apk")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))

	info := ValidateFile(path)
	assert.True(t, info.IsValid)
	assert.Equal(t, int64(8), info.Size)

	info = ValidateFile(filepath.Join(dir, "missing.apk"))
	assert.False(t, info.IsValid)
	assert.Contains(t, info.ErrorMessage, "File does not exist")

	info = ValidateFile(dir)
	assert.False(t, info.IsValid)
	assert.Contains(t, info.ErrorMessage, "directory")
}
