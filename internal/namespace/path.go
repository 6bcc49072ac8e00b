package namespace

import "strings"

// Path is a filesystem path split into its table, field and value levels.
// An empty string means the level is absent.
type Path struct {
	Table string
	Field string
	Value string
	// Excess is set when the path has segments below the value level.
	// No such entry can exist.
	Excess bool
}

// Split parses a slash-separated path. It never fails: malformed input
// yields fewer populated levels.
//
//	"/"                   → root
//	"/users"              → table
//	"/users/status"       → field
//	"/users/status/x"     → value
//	"/users/."            → table (a trailing "." drops its level)
//	"/users//status"      → table (an empty segment ends the path)
func Split(path string) Path {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return Path{}
	}

	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			segments = segments[:i]
			break
		}
	}

	var p Path
	if len(segments) > 3 {
		p.Excess = true
		segments = segments[:3]
	}
	// Compatibility: a "." in the deepest supplied position is absent.
	if n := len(segments); n > 0 && segments[n-1] == "." && !p.Excess {
		segments = segments[:n-1]
	}

	levels := []*string{&p.Table, &p.Field, &p.Value}
	for i, s := range segments {
		*levels[i] = s
	}
	return p
}

// Depth is the number of populated levels, 0 (root) to 3 (value).
func (p Path) Depth() int {
	switch {
	case p.Table == "":
		return 0
	case p.Field == "":
		return 1
	case p.Value == "":
		return 2
	default:
		return 3
	}
}

// Child returns the path one level deeper. Children of a value path keep
// the value path and set Excess.
func (p Path) Child(name string) Path {
	switch p.Depth() {
	case 0:
		p.Table = name
	case 1:
		p.Field = name
	case 2:
		p.Value = name
	default:
		p.Excess = true
	}
	return p
}

// String renders the canonical absolute form of p.
func (p Path) String() string {
	var b strings.Builder
	for _, s := range []string{p.Table, p.Field, p.Value} {
		if s == "" {
			break
		}
		b.WriteByte('/')
		b.WriteString(s)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// Name is the last populated level, or "/" for the root.
func (p Path) Name() string {
	switch p.Depth() {
	case 0:
		return "/"
	case 1:
		return p.Table
	case 2:
		return p.Field
	default:
		return p.Value
	}
}
