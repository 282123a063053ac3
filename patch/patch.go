// Package patch installs and removes the game's certificate check patch.
// The patch replaces the game's video DLL with a proxy that disables the
// certificate pinning, keeping the original DLL around for unpatching.
package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// The video DLL the game loads and the name the original is kept under
// while the proxy is installed.
const (
	videoDLL    = "binkw32.dll"
	originalDLL = "binkw23.dll"
)

// ErrMissingGame means the given path does not point at the game executable.
var ErrMissingGame = errors.New("path does not contain the game executable")

// Apply patches the game next to the given game executable: the original
// video DLL is installed under its fallback name and the proxy takes its
// place.
func Apply(ctx context.Context, source *Source, gameExePath string) error {
	dir, err := gameDir(gameExePath)
	if err != nil {
		return err
	}

	original, err := source.FetchAsset(ctx, originalDLL)
	if err != nil {
		return fmt.Errorf("fetch original dll: %w", err)
	}
	proxy, err := source.FetchAsset(ctx, videoDLL)
	if err != nil {
		return fmt.Errorf("fetch proxy dll: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, originalDLL), original, 0o644); err != nil {
		return fmt.Errorf("write patch files: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, videoDLL), proxy, 0o644); err != nil {
		return fmt.Errorf("write patch files: %w", err)
	}
	return nil
}

// Remove unpatches the game: the proxy DLL is deleted and the original
// video DLL is put back in place. Without a kept original the DLL is
// fetched from the release channel again.
func Remove(ctx context.Context, source *Source, gameExePath string) error {
	dir, err := gameDir(gameExePath)
	if err != nil {
		return err
	}

	video := filepath.Join(dir, videoDLL)
	kept := filepath.Join(dir, originalDLL)

	if _, err := os.Stat(video); err == nil {
		if err := os.Remove(video); err != nil {
			return fmt.Errorf("delete %s, you will have to unpatch manually: %w", videoDLL, err)
		}
	}

	original, err := os.ReadFile(kept)
	if err != nil {
		// No kept original, restore from the release channel.
		original, err = source.FetchAsset(ctx, originalDLL)
		if err != nil {
			return fmt.Errorf("restore original dll: %w", err)
		}
	} else {
		_ = os.Remove(kept)
	}

	if err := os.WriteFile(video, original, 0o644); err != nil {
		return fmt.Errorf("restore original dll: %w", err)
	}
	return nil
}

// gameDir checks the game executable path and returns its directory.
func gameDir(gameExePath string) (string, error) {
	info, err := os.Stat(gameExePath)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrMissingGame, gameExePath)
	}
	return filepath.Dir(gameExePath), nil
}
