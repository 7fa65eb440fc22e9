// Package session yields an authenticated browsing session.
//
// A session is restored from the credential bundle, a JSON array of cookies
// saved by an earlier login. Without a bundle the provider falls back to an
// interactive login in a visible browser, which needs a terminal.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"packrat/internal/browser"
	"packrat/internal/fileutil"
)

// ErrNoBundle is returned when the credential bundle does not exist.
var ErrNoBundle = errors.New("credential bundle not found")

// LoadBundle reads the cookie array at path.
func LoadBundle(path string) ([]browser.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoBundle, path)
		}
		return nil, fmt.Errorf("read credential bundle: %w", err)
	}
	var cookies []browser.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("decode credential bundle %s: %w", path, err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoBundle, path)
	}
	return cookies, nil
}

// SaveBundle writes cookies to path readable only by the owner.
func SaveBundle(path string, cookies []browser.Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write credential bundle: %w", err)
	}
	return nil
}
