// Package sanitize normalizes and validates free-form input before it
// reaches any security-sensitive operation. All functions are pure and
// idempotent; failures are reported as error lists, never panics.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTextLimit caps free text when the caller does not supply a limit.
const DefaultTextLimit = 500

// maxEmailLength follows RFC 5321's practical address ceiling.
const maxEmailLength = 254

// Result reports the outcome of a sanitization pass.
type Result struct {
	Valid  bool
	Errors []string
	Value  string
}

var (
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	nameStrip  = regexp.MustCompile(`[^A-Za-z\s\-.]`)
	spaceRe    = regexp.MustCompile(`\s+`)
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	jsSchemeRe = regexp.MustCompile(`(?i)javascript\s*:`)
)

// Email trims and lower-cases the address, then checks shape and length.
func Email(raw string) Result {
	value := strings.ToLower(strings.TrimSpace(raw))
	var errs []string
	if value == "" {
		errs = append(errs, "email is required")
	} else {
		if len(value) > maxEmailLength {
			errs = append(errs, fmt.Sprintf("email must be at most %d characters", maxEmailLength))
		}
		if !emailRe.MatchString(value) {
			errs = append(errs, "email format is invalid")
		}
	}
	return Result{Valid: len(errs) == 0, Errors: errs, Value: value}
}

// Name strips characters outside letters, whitespace, hyphen and dot, then
// enforces a 2-100 character length on the stripped value.
func Name(raw string) Result {
	value := norm.NFC.String(strings.TrimSpace(raw))
	value = nameStrip.ReplaceAllString(value, "")
	value = strings.TrimSpace(spaceRe.ReplaceAllString(value, " "))
	var errs []string
	switch {
	case len(value) < 2:
		errs = append(errs, "name must be at least 2 characters")
	case len(value) > 100:
		errs = append(errs, "name must be at most 100 characters")
	}
	return Result{Valid: len(errs) == 0, Errors: errs, Value: value}
}

// Text removes HTML and script-bearing sequences and enforces the caller's
// length limit (DefaultTextLimit when maxLen <= 0).
func Text(raw string, maxLen int) Result {
	if maxLen <= 0 {
		maxLen = DefaultTextLimit
	}
	value := strings.TrimSpace(raw)
	// Strip repeatedly so reassembled tags from nested fragments cannot
	// survive a single pass.
	for {
		next := scriptRe.ReplaceAllString(value, "")
		next = tagRe.ReplaceAllString(next, "")
		next = jsSchemeRe.ReplaceAllString(next, "")
		if next == value {
			break
		}
		value = next
	}
	value = strings.TrimSpace(value)
	var errs []string
	if len(value) > maxLen {
		errs = append(errs, fmt.Sprintf("text must be at most %d characters", maxLen))
	}
	return Result{Valid: len(errs) == 0, Errors: errs, Value: value}
}
