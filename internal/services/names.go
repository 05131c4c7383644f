package services

import (
	"strings"
	"unicode"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
)

const maxItemNameLength = 255

// ValidateItemName checks a folder or file name against the naming
// rules and returns the trimmed name. Uniqueness comparisons elsewhere
// are case-sensitive exact matches on the trimmed form.
func ValidateItemName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apperrors.InvalidName("name cannot be empty")
	}
	if len(trimmed) > maxItemNameLength {
		return "", apperrors.InvalidName("name exceeds %d characters", maxItemNameLength)
	}
	if strings.ContainsAny(trimmed, "/\\") {
		return "", apperrors.InvalidName("name cannot contain path separators")
	}
	if strings.Count(trimmed, ".") > 1 {
		return "", apperrors.InvalidName("name cannot contain more than one extension separator")
	}
	if dot := strings.Index(trimmed, "."); dot >= 0 {
		if dot > 0 && unicode.IsSpace(rune(trimmed[dot-1])) {
			return "", apperrors.InvalidName("whitespace before extension separator is not allowed")
		}
		if dot < len(trimmed)-1 && unicode.IsSpace(rune(trimmed[dot+1])) {
			return "", apperrors.InvalidName("whitespace after extension separator is not allowed")
		}
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", apperrors.InvalidName("name cannot contain control characters")
		}
	}
	return trimmed, nil
}
