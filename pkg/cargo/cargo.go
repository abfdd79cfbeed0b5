// Package cargo collects build-orchestrator directives. Every line carries the
// fixed "cargo:" tag and is printed verbatim, one per line, in append order.
// The emitter never deduplicates or reorders: the assembly stages are
// responsible for appending search paths before the link names that need them.
package cargo

import (
	"fmt"
	"io"
)

const (
	linkSearchPrefix  = "cargo:rustc-link-search=native="
	linkLibPrefix     = "cargo:rustc-link-lib="
	linkArgPrefix     = "cargo:rustc-link-arg="
	rerunEnvPrefix    = "cargo:rerun-if-env-changed="
	rerunChangePrefix = "cargo:rerun-if-changed="
	warningPrefix     = "cargo:warning="
)

// List is an append-only sequence of directives. The zero value is ready to
// use. A List is not safe for concurrent appends.
type List struct {
	commands []string
}

// LinkSearch registers dir as a native library search path. It also appends a
// runtime rpath link argument so the produced binary can locate the shared
// libraries without LD_LIBRARY_PATH.
func (l *List) LinkSearch(dir string) {
	l.commands = append(l.commands, linkSearchPrefix+dir)
	l.commands = append(l.commands, fmt.Sprintf("%s-Wl,-rpath,%s", linkArgPrefix, dir))
}

// LinkLib asks the orchestrator to link the named library.
func (l *List) LinkLib(name string) {
	l.commands = append(l.commands, linkLibPrefix+name)
}

// LinkArg passes a raw argument to the final linker invocation.
func (l *List) LinkArg(arg string) {
	l.commands = append(l.commands, linkArgPrefix+arg)
}

// RerunIfEnvChanged re-triggers the build when the named variable changes.
func (l *List) RerunIfEnvChanged(name string) {
	l.commands = append(l.commands, rerunEnvPrefix+name)
}

// RerunIfChanged re-triggers the build when the file or directory changes.
func (l *List) RerunIfChanged(path string) {
	l.commands = append(l.commands, rerunChangePrefix+path)
}

// Warning surfaces a message through the orchestrator's warning channel.
func (l *List) Warning(msg string) {
	l.commands = append(l.commands, warningPrefix+msg)
}

// Lines returns the accumulated directives in append order. The returned
// slice is shared with the list; callers must not mutate it.
func (l *List) Lines() []string {
	return l.commands
}

// Len reports how many directives have been appended.
func (l *List) Len() int {
	return len(l.commands)
}

// Print writes every directive to w, one per line, unmodified.
func (l *List) Print(w io.Writer) error {
	for _, command := range l.commands {
		if _, err := fmt.Fprintln(w, command); err != nil {
			return err
		}
	}
	return nil
}
