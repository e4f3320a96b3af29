package media

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingStructure is matched by every MissingStructureError.
	ErrMissingStructure = errors.New("missing required structure")
	ErrUnknownFormat    = errors.New("unknown container format")
)

// MissingStructureError reports a mandatory box or page that is absent from
// both the current chunk and its context. No partial output accompanies it.
type MissingStructureError struct {
	Format    Format
	Structure string
}

func (e *MissingStructureError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Format, ErrMissingStructure, e.Structure)
}

func (e *MissingStructureError) Is(target error) bool {
	return target == ErrMissingStructure
}

func MissingStructure(format Format, structure string) error {
	return &MissingStructureError{Format: format, Structure: structure}
}
