// Package validator checks upload and listing requests before they reach the
// pipeline. It returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	maxFileNameLength = 255
	defaultPageLimit  = 20
	maxPageLimit      = 100
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateUpload checks the uploaded file's name. File contents are not
// inspected; an unreadable PDF is ingested with a failed extraction.
func ValidateUpload(fileName string) error {
	errs := make(map[string]string)

	name := strings.TrimSpace(fileName)
	if name == "" {
		errs["file"] = "file name is required"
	} else if len(name) > maxFileNameLength {
		errs["file"] = fmt.Sprintf("file name must be at most %d characters", maxFileNameLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Page is a validated limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit and offset query values. Empty values take their
// defaults: limit 20, offset 0. Limit must be 1..100.
func ParsePage(limit, offset string) (Page, error) {
	page := Page{Limit: defaultPageLimit}
	errs := make(map[string]string)

	if limit != "" {
		n, err := strconv.Atoi(limit)
		switch {
		case err != nil:
			errs["limit"] = "limit must be an integer"
		case n < 1 || n > maxPageLimit:
			errs["limit"] = fmt.Sprintf("limit must be between 1 and %d", maxPageLimit)
		default:
			page.Limit = n
		}
	}
	if offset != "" {
		n, err := strconv.Atoi(offset)
		switch {
		case err != nil:
			errs["offset"] = "offset must be an integer"
		case n < 0:
			errs["offset"] = "offset must not be negative"
		default:
			page.Offset = n
		}
	}
	if len(errs) > 0 {
		return Page{}, &ValidationError{Fields: errs}
	}
	return page, nil
}
