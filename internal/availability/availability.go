// Package availability implements the availability phase (C6): it
// evaluates `@available(...)` attributes, inherits ranges from the
// enclosing library, and narrows every declaration to its visibility at
// a single selected version.
package availability

import (
	"strconv"

	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
)

// Version is a point in a library's lifecycle. Reserved names occupy the
// high end of the u32 range so they never collide with a numbered
// release; numeric versions live in (0, 2^31).
type Version uint32

const (
	NegInf Version = 0
	Next   Version = 0xFFD00000
	Head   Version = 0xFFE00000
	Legacy Version = 0xFFF00000
	PosInf Version = 0xFFFFFFFF
)

// ParseVersion recognises the reserved names and falls back to decimal.
func ParseVersion(s string) (Version, bool) {
	switch s {
	case "NEXT":
		return Next, true
	case "HEAD":
		return Head, true
	case "LEGACY":
		return Legacy, true
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return Version(n), true
}

// VersionRange is a half-open [Lower, UpperExclusive) interval.
type VersionRange struct {
	Lower          Version
	UpperExclusive Version
}

// Contains reports whether v falls within the range.
func (r VersionRange) Contains(v Version) bool {
	return v >= r.Lower && v < r.UpperExclusive
}

// State is the availability state machine named in spec §4.5/§GLOSSARY.
type State int

const (
	Unset State = iota
	Initialized
	Inherited
	Narrowed
	Failed
)

// Availability is one declaration's (or member's) versioning lifetime.
type Availability struct {
	State      State
	Added      *Version
	Deprecated *Version
	Removed    *Version
	Replaced   bool
}

// Unbounded is the availability of the implicit library root: present
// for all versions, never deprecated.
func Unbounded() Availability {
	a, r := NegInf, PosInf
	return Availability{State: Inherited, Added: &a, Removed: &r}
}

// Init validates the raw @available arguments in isolation (before any
// inheritance), checking the "contradictory ranges" and "replaced
// without removed" failure conditions from spec §4.5.
func (a *Availability) Init(r *diagnostics.Reporter, file string, line, col int) bool {
	if a.Replaced && a.Removed == nil {
		r.Error(diagnostics.ErrAvailReplacedNoRemoved, file, line, col,
			"replaced=true requires removed to be set")
		a.State = Failed
		return false
	}
	added := NegInf
	if a.Added != nil {
		added = *a.Added
	}
	removed := PosInf
	if a.Removed != nil {
		removed = *a.Removed
	}
	if added >= removed {
		r.Error(diagnostics.ErrAvailInconsistentRange, file, line, col,
			"added must be strictly before removed")
		a.State = Failed
		return false
	}
	if a.Deprecated != nil {
		d := *a.Deprecated
		if d < added || d >= removed {
			r.Error(diagnostics.ErrAvailDeprecatedOOB, file, line, col,
				"deprecated must fall within [added, removed)")
			a.State = Failed
			return false
		}
	}
	a.State = Initialized
	return true
}

// Inherit fills in any range bound a didn't specify from parent (the
// enclosing library's availability) and validates the result is nested
// inside the parent's range.
func (a *Availability) Inherit(r *diagnostics.Reporter, parent Availability, file string, line, col int) bool {
	if a.Added == nil {
		v := *parent.Added
		a.Added = &v
	}
	if a.Removed == nil {
		v := *parent.Removed
		a.Removed = &v
	}
	if *a.Removed < *parent.Added || *a.Added >= *parent.Removed {
		r.Error(diagnostics.ErrAvailInconsistentRange, file, line, col,
			"removed must not precede the enclosing library's added version")
		a.State = Failed
		return false
	}
	a.State = Inherited
	return true
}

// Narrow restricts a to its intersection with [selected, +inf). If the
// intersection is empty the declaration is absent at the selected
// version; the caller must drop it from later phases.
func (a *Availability) Narrow(selected Version) (present bool) {
	lower := *a.Added
	if selected > lower {
		lower = selected
	}
	upper := *a.Removed
	if lower >= upper {
		a.State = Narrowed
		return false
	}
	a.Added = &lower
	a.Removed = &upper
	a.State = Narrowed
	return true
}

// IsDeprecated reports whether the narrowed declaration is deprecated at
// the selected version.
func (a Availability) IsDeprecated(selected Version) bool {
	return a.Deprecated != nil && selected >= *a.Deprecated
}

// Range returns the current [Lower, UpperExclusive) interval.
func (a Availability) Range() VersionRange {
	lo, hi := NegInf, PosInf
	if a.Added != nil {
		lo = *a.Added
	}
	if a.Removed != nil {
		hi = *a.Removed
	}
	return VersionRange{Lower: lo, UpperExclusive: hi}
}
