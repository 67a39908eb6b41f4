package availability

import (
	"testing"

	"github.com/mehditeymorian/fidlgo/internal/diagnostics"
	"github.com/stretchr/testify/require"
)

func TestParseVersionRecognisesReservedNames(t *testing.T) {
	v, ok := ParseVersion("HEAD")
	require.True(t, ok)
	require.Equal(t, Head, v)

	v, ok = ParseVersion("NEXT")
	require.True(t, ok)
	require.Equal(t, Next, v)

	v, ok = ParseVersion("LEGACY")
	require.True(t, ok)
	require.Equal(t, Legacy, v)
}

func TestParseVersionFallsBackToDecimal(t *testing.T) {
	v, ok := ParseVersion("5")
	require.True(t, ok)
	require.Equal(t, Version(5), v)

	_, ok = ParseVersion("not_a_number")
	require.False(t, ok)
}

func TestVersionRangeContains(t *testing.T) {
	r := VersionRange{Lower: 1, UpperExclusive: 5}
	require.True(t, r.Contains(1))
	require.True(t, r.Contains(4))
	require.False(t, r.Contains(5))
	require.False(t, r.Contains(0))
}

func TestInitRejectsReplacedWithoutRemoved(t *testing.T) {
	rep := &diagnostics.Reporter{}
	a := &Availability{Replaced: true}
	ok := a.Init(rep, "f", 1, 1)
	require.False(t, ok)
	require.Equal(t, Failed, a.State)
	require.True(t, rep.HasErrors())
}

func TestInitRejectsAddedNotBeforeRemoved(t *testing.T) {
	rep := &diagnostics.Reporter{}
	added, removed := Version(10), Version(5)
	a := &Availability{Added: &added, Removed: &removed}
	ok := a.Init(rep, "f", 1, 1)
	require.False(t, ok)
	require.True(t, rep.HasErrors())
}

func TestInitRejectsDeprecatedOutOfBounds(t *testing.T) {
	rep := &diagnostics.Reporter{}
	added, removed, dep := Version(1), Version(10), Version(20)
	a := &Availability{Added: &added, Removed: &removed, Deprecated: &dep}
	ok := a.Init(rep, "f", 1, 1)
	require.False(t, ok)
	require.True(t, rep.HasErrors())
}

func TestInitAcceptsWellFormedRange(t *testing.T) {
	rep := &diagnostics.Reporter{}
	added, removed := Version(1), Version(10)
	a := &Availability{Added: &added, Removed: &removed}
	ok := a.Init(rep, "f", 1, 1)
	require.True(t, ok)
	require.Equal(t, Initialized, a.State)
	require.False(t, rep.HasErrors())
}

func TestInheritFillsUnsetBoundsFromParent(t *testing.T) {
	rep := &diagnostics.Reporter{}
	a := &Availability{}
	parent := Unbounded()
	ok := a.Inherit(rep, parent, "f", 1, 1)
	require.True(t, ok)
	require.Equal(t, NegInf, *a.Added)
	require.Equal(t, PosInf, *a.Removed)
	require.Equal(t, Inherited, a.State)
}

func TestInheritRejectsRangeOutsideParent(t *testing.T) {
	rep := &diagnostics.Reporter{}
	pAdded, pRemoved := Version(10), Version(20)
	parent := Availability{Added: &pAdded, Removed: &pRemoved}
	added, removed := Version(1), Version(5)
	a := &Availability{Added: &added, Removed: &removed}
	ok := a.Inherit(rep, parent, "f", 1, 1)
	require.False(t, ok)
	require.True(t, rep.HasErrors())
}

func TestNarrowDropsDeclarationAbsentAtSelectedVersion(t *testing.T) {
	added, removed := Version(1), Version(5)
	a := &Availability{Added: &added, Removed: &removed, State: Inherited}
	present := a.Narrow(10)
	require.False(t, present)
	require.Equal(t, Narrowed, a.State)
}

func TestNarrowKeepsDeclarationPresentAtSelectedVersion(t *testing.T) {
	added, removed := Version(1), Version(5)
	a := &Availability{Added: &added, Removed: &removed, State: Inherited}
	present := a.Narrow(3)
	require.True(t, present)
	require.Equal(t, Version(3), *a.Added)
}

func TestIsDeprecated(t *testing.T) {
	dep := Version(5)
	a := Availability{Deprecated: &dep}
	require.False(t, a.IsDeprecated(4))
	require.True(t, a.IsDeprecated(5))
	require.True(t, a.IsDeprecated(6))
}
