package values

import "strings"

// DefaultOutputPreference is the fixed preference list used to pick an
// output when a FlakeRef doesn't name one explicitly.
var DefaultOutputPreference = []string{"containix", "default"}

// FlakeRef is a parsed "<source>#<output>?" reference. Output is empty
// when the reference didn't name one, in which case resolution picks the
// first name in DefaultOutputPreference present under the current system.
type FlakeRef struct {
	Source string
	Output string
}

// ParseFlakeRef splits on the first '#'. Everything before it is the
// source; everything after, if any, is the output name.
func ParseFlakeRef(s string) FlakeRef {
	source, output, found := strings.Cut(s, "#")
	if !found {
		return FlakeRef{Source: s}
	}
	return FlakeRef{Source: source, Output: output}
}

// String renders the reference back in "source#output" form, or just
// "source" if no output was given.
func (f FlakeRef) String() string {
	if f.Output == "" {
		return f.Source
	}
	return f.Source + "#" + f.Output
}
