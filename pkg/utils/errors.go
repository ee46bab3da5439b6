package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrInvalidEntity      = errors.New("invalid entity")                           // nil entity or missing identity
	ErrUnsupportedEntity  = errors.New("unsupported entity for table of contents") // wrong top-level type or bundle
	ErrEntityNotFound     = errors.New("entity not found")
	ErrEntityCycle        = errors.New("entity reference cycle")
	ErrFieldRender        = errors.New("field render failed") // host could not render a scannable field
	ErrInvalidFieldRef    = errors.New("invalid field reference")
	ErrParsing            = errors.New("parsing error")    // Wraps specific parsing error (YAML, JSON, HTML)
	ErrFilesystem         = errors.New("filesystem error") // Wraps os errors
	ErrMarkdownConversion = errors.New("markdown conversion failed")
	ErrConfigValidation   = errors.New("configuration validation error")
)

// WrapErrorf annotates err with a formatted message, keeping it matchable with errors.Is.
// Returns nil if err is nil.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// CategorizeError maps an error to a predefined category string for logging/results.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInvalidEntity):
		return "Entity_Invalid"
	case errors.Is(err, ErrUnsupportedEntity):
		return "Entity_Unsupported"
	case errors.Is(err, ErrEntityNotFound):
		return "Entity_NotFound"
	case errors.Is(err, ErrEntityCycle):
		return "Entity_Cycle"
	case errors.Is(err, ErrFieldRender):
		return "Field_Render"
	case errors.Is(err, ErrInvalidFieldRef):
		return "Config_FieldRef"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	case errors.Is(err, ErrMarkdownConversion):
		return "Content_Markdown"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "YAML") {
			return "Content_ParsingYAML"
		}
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		if strings.Contains(errMsg, "HTML") {
			return "Content_ParsingHTML"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		return "Filesystem_Other"
	}

	return "Unknown"
}
