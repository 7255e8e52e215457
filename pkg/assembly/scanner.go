// Package assembly scans .s files for the two facts reachability needs:
// which Go functions are implemented in assembly (their SSA form has no
// body, so they are external to the analysis) and which Go functions
// assembly code calls (invisible call edges, so they become extra roots).
package assembly

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Info holds the functions found in a package's assembly files.
type Info struct {
	// Implemented contains names of functions whose body is a TEXT block.
	Implemented map[string]struct{}

	// Called contains names of functions targeted by a CALL from assembly.
	Called map[string]struct{}
}

// IsImplemented reports whether name has an assembly body.
func (i *Info) IsImplemented(name string) bool {
	_, ok := i.Implemented[name]
	return ok
}

// IsCalled reports whether assembly code calls name.
func (i *Info) IsCalled(name string) bool {
	_, ok := i.Called[name]
	return ok
}

// Empty reports whether the scan found nothing of interest.
func (i *Info) Empty() bool {
	return len(i.Implemented) == 0 && len(i.Called) == 0
}

// The · (middle dot) denotes package-level symbols in Go assembly.
var (
	textPattern = regexp.MustCompile(`TEXT\s+·([a-zA-Z_][a-zA-Z0-9_]*)\(SB\)`)
	callPattern = regexp.MustCompile(`CALL\s+·([a-zA-Z_][a-zA-Z0-9_]*)\(SB\)`)
)

// Scan reads all assembly files of a package. pkg.OtherFiles is already
// filtered by the build configuration used during loading, so the result
// respects cross-architecture constraints.
func Scan(pkg *packages.Package) (*Info, error) {
	info := &Info{
		Implemented: make(map[string]struct{}),
		Called:      make(map[string]struct{}),
	}
	if pkg == nil {
		return info, nil
	}

	for _, file := range pkg.OtherFiles {
		if !strings.HasSuffix(file, ".s") {
			continue
		}
		if err := scanFile(file, info); err != nil {
			return info, fmt.Errorf("scan assembly file: %s: %w", file, err)
		}
	}
	return info, nil
}

func scanFile(filename string, info *Info) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return scanReader(file, info)
}

// scanReader scans one assembly source for TEXT and CALL directives.
func scanReader(r io.Reader, info *Info) error {
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := scanner.Text()

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if matches := textPattern.FindStringSubmatch(line); matches != nil {
			info.Implemented[matches[1]] = struct{}{}
		}
		if matches := callPattern.FindStringSubmatch(line); matches != nil {
			info.Called[matches[1]] = struct{}{}
		}
	}

	return scanner.Err()
}
