package cargo

import (
	"fmt"
	"io"
	"strings"
)

// Cgo renders resolved compile and link flags as cgo preamble lines, the
// format Go consumers paste above an `import "C"` block. One CXXFLAGS line and
// one LDFLAGS line come out regardless of how many flags went in.
type Cgo struct {
	cxxflags []string
	ldflags  []string
}

// AddInclude appends an -I flag for dir.
func (c *Cgo) AddInclude(dir string) {
	c.cxxflags = append(c.cxxflags, "-I"+dir)
}

// AddDefine appends a -D flag. def is the raw NAME or NAME=VALUE text.
func (c *Cgo) AddDefine(def string) {
	c.cxxflags = append(c.cxxflags, "-D"+def)
}

// AddFlag appends a raw compiler flag.
func (c *Cgo) AddFlag(flag string) {
	c.cxxflags = append(c.cxxflags, flag)
}

// AddLinkSearch appends -L and the matching runtime rpath for dir.
func (c *Cgo) AddLinkSearch(dir string) {
	c.ldflags = append(c.ldflags, "-L"+dir, "-Wl,-rpath,"+dir)
}

// AddLib appends an -l flag for the named library.
func (c *Cgo) AddLib(name string) {
	c.ldflags = append(c.ldflags, "-l"+name)
}

// Lines returns the cgo preamble lines. Empty groups produce no line.
func (c *Cgo) Lines() []string {
	var lines []string
	if len(c.cxxflags) > 0 {
		lines = append(lines, fmt.Sprintf("#cgo CXXFLAGS: %s", strings.Join(c.cxxflags, " ")))
	}
	if len(c.ldflags) > 0 {
		lines = append(lines, fmt.Sprintf("#cgo LDFLAGS: %s", strings.Join(c.ldflags, " ")))
	}
	return lines
}

// Print writes the preamble lines to w, one per line.
func (c *Cgo) Print(w io.Writer) error {
	for _, line := range c.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
