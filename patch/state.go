package patch

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Variant describes which video DLL is installed next to the game.
type Variant string

// The known video DLL variants.
const (
	// VariantPatched means the proxy DLL is installed.
	VariantPatched Variant = "patched"
	// VariantOriginal means the unmodified game DLL is installed.
	VariantOriginal Variant = "original"
	// VariantMissing means no video DLL is installed at all.
	VariantMissing Variant = "missing"
	// VariantUnknown means the installed DLL matches no known variant.
	VariantUnknown Variant = "unknown"
)

// State reports which video DLL variant is installed next to the given game
// executable, identified by digest against the release channel's files.
func State(ctx context.Context, source *Source, gameExePath string) (Variant, error) {
	dir, err := gameDir(gameExePath)
	if err != nil {
		return VariantUnknown, err
	}

	installed, err := fileDigest(filepath.Join(dir, videoDLL))
	if err != nil {
		if os.IsNotExist(err) {
			return VariantMissing, nil
		}
		return VariantUnknown, err
	}

	proxy, err := source.FetchAsset(ctx, videoDLL)
	if err != nil {
		return VariantUnknown, err
	}
	if installed == blake3.Sum256(proxy) {
		return VariantPatched, nil
	}

	original, err := source.FetchAsset(ctx, originalDLL)
	if err != nil {
		return VariantUnknown, err
	}
	if installed == blake3.Sum256(original) {
		return VariantOriginal, nil
	}
	return VariantUnknown, nil
}

func fileDigest(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256(data), nil
}
