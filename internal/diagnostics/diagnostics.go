// Package diagnostics defines the compiler's diagnostic taxonomy and a
// write-only reporter sink (C10). Diagnostics are never deduplicated: each
// call to Reporter.Report appends to the log, even if an identical
// diagnostic was already reported, because repeated failures at distinct
// points in a pass are independently useful signal to the caller.
package diagnostics

import "sort"

// Severity distinguishes fatal diagnostics (compilation fails) from
// advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code is a stable identifier for a diagnostic kind, referenced by external
// documentation. Codes are grouped by the phase that raises them.
type Code string

const (
	// Lex (C2)
	ErrInvalidCharacter          Code = "E0001"
	ErrUnterminatedString        Code = "E0002"
	ErrInvalidEscapeSequence     Code = "E0003"
	ErrInvalidHexDigit           Code = "E0004"
	ErrUnexpectedControlChar     Code = "E0005"
	ErrUnexpectedLineBreak       Code = "E0006"
	ErrUnicodeEscapeMissingBrace Code = "E0007"
	ErrUnicodeEscapeUnterminated Code = "E0008"
	ErrUnicodeEscapeEmpty        Code = "E0009"
	ErrUnicodeEscapeTooLong      Code = "E0010"
	ErrUnicodeEscapeTooLarge     Code = "E0011"
	ErrUTF8BOM                   Code = "E0012"

	// Parse (C3)
	ErrUnexpectedToken  Code = "E0100"
	ErrMissingDelimiter Code = "E0101"

	// Consume / Resolve (C4/C5)
	ErrDuplicateName          Code = "E0200"
	ErrDuplicateOrdinal       Code = "E0201"
	ErrConflictingLibraryName Code = "E0202"
	ErrUnresolvedIdentifier   Code = "E0203"
	ErrSizedCycle             Code = "E0204"
	ErrMissingCrossLibrarySym Code = "E0205"
	ErrComposeModifier        Code = "E0206"
	ErrComposeAttribute       Code = "E0207"

	// Type (C6/C7)
	ErrOptionalOnNonIndirect Code = "E0300"
	ErrBoundExceedsSubtype   Code = "E0301"
	ErrOrdinalCollision      Code = "E0302"
	ErrEmptyStrictEnum       Code = "E0303"
	ErrEmptyStrictUnion      Code = "E0304"
	ErrValueNotPowerOfTwo    Code = "E0305"
	ErrDuplicateMemberValue  Code = "E0306"

	// Availability (C6)
	ErrAvailInconsistentRange Code = "E0400"
	ErrAvailReplacedNoRemoved Code = "E0401"
	ErrAvailDeprecatedOOB     Code = "E0402"

	// Shape (C8)
	WarnInlineSizeExceedsLimit Code = "W0500"

	// Internal
	ErrInternal Code = "E0900"
)

// Related points to a secondary source location relevant to a diagnostic,
// e.g. the first declaration in a "duplicate name" pair.
type Related struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Diagnostic is the canonical compiler diagnostic.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	File     string
	Line     int
	Column   int
	Hint     string
	Related  *Related
}

// Reporter is the write-only sink every phase reports through. Its zero
// value is ready to use.
type Reporter struct {
	diags []Diagnostic
}

// Error appends an error-severity diagnostic.
func (r *Reporter) Error(code Code, file string, line, column int, message string) {
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		File:     file,
		Line:     line,
		Column:   column,
	})
}

// ErrorWithHint appends an error-severity diagnostic carrying a hint.
func (r *Reporter) ErrorWithHint(code Code, file string, line, column int, message, hint string) {
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		File:     file,
		Line:     line,
		Column:   column,
		Hint:     hint,
	})
}

// ErrorRelated appends an error-severity diagnostic with a secondary
// location.
func (r *Reporter) ErrorRelated(code Code, file string, line, column int, message string, related Related) {
	rc := related
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  message,
		File:     file,
		Line:     line,
		Column:   column,
		Related:  &rc,
	})
}

// Warn appends a warning-severity diagnostic.
func (r *Reporter) Warn(code Code, file string, line, column int, message string) {
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Message:  message,
		File:     file,
		Line:     line,
		Column:   column,
	})
}

// Report appends a fully-formed diagnostic, for callers that already have
// one assembled (e.g. converting a lexer/parser error).
func (r *Reporter) Report(d Diagnostic) {
	r.diags = append(r.diags, d)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
// Per spec, compilation fails iff at least one error-severity diagnostic
// was emitted; warnings alone never fail it.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnostics returns the recorded diagnostics in source order, i.e. the
// order Report/Error were called in. No deduplication is performed.
func (r *Reporter) Diagnostics() []Diagnostic {
	return r.diags
}

// Sorted returns a stable copy of the recorded diagnostics ordered by
// file, then line, then column, then code, then message — the ordering
// contract spec §5 requires for surfacing diagnostics deterministically.
// No entries are dropped: duplicates are preserved.
func (r *Reporter) Sorted() []Diagnostic {
	out := append([]Diagnostic(nil), r.diags...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Message < b.Message
	})
	return out
}
