package gi

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Version is a parsed namespace version such as "2.0".
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// ParseVersion parses "major", "major.minor" or "major.minor.patch".
func ParseVersion(s string) (Version, bool) {
	if s == "" {
		return Version{}, false
	}

	var v Version
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return Version{}, false
	}
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return Version{}, false
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, false
		}
		switch i {
		case 0:
			v.Major = uint32(n)
		case 1:
			v.Minor = uint32(n)
		case 2:
			v.Patch = uint32(n)
		}
	}
	return v, true
}

// Compare orders versions numerically.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, o.Patch)
}

func (v Version) String() string {
	s := strconv.FormatUint(uint64(v.Major), 10) + "." + strconv.FormatUint(uint64(v.Minor), 10)
	if v.Patch != 0 {
		s += "." + strconv.FormatUint(uint64(v.Patch), 10)
	}
	return s
}

// SortVersions orders version strings newest first. Unparseable versions
// sort last in lexical order.
func SortVersions(versions []string) {
	slices.SortStableFunc(versions, func(a, b string) int {
		va, okA := ParseVersion(a)
		vb, okB := ParseVersion(b)
		switch {
		case okA && okB:
			return vb.Compare(va)
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})
}

// splitDependency splits "Namespace-Version" at the last dash.
func splitDependency(dep string) (namespace, version string) {
	i := strings.LastIndexByte(dep, '-')
	if i <= 0 {
		return dep, ""
	}
	return dep[:i], dep[i+1:]
}
