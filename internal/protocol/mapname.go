package protocol

import (
	"github.com/go-faster/errors"
)

const MaxMapNameLength = 64

// ValidateMapName reports whether a server supplied map name is safe to use
// as a file name. Only a small set of characters is allowed, and names that
// could address the parent or current directory are rejected.
func ValidateMapName(name string) error {
	if len(name) == 0 || len(name) > MaxMapNameLength {
		return errors.Wrapf(ErrUnsafeMapName, "length %d", len(name))
	}
	if name[0] == '.' {
		return errors.Wrapf(ErrUnsafeMapName, "%q starts with a dot", name)
	}
	for i := 0; i < len(name); i++ {
		if !mapNameChar(name[i]) {
			return errors.Wrapf(ErrUnsafeMapName, "%q contains %q", name, name[i])
		}
	}
	return nil
}

func mapNameChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case ' ', '_', '-', '.', '\'', '(', ')', '!', '+':
		return true
	}
	return false
}
