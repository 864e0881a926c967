package shader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownInclude is returned when an #include names a snippet the pre-processor does not know.
var ErrUnknownInclude = errors.New("shader: unknown include")

// ErrIncludeCycle is returned when snippets include each other.
var ErrIncludeCycle = errors.New("shader: include cycle")

// includeRe matches a whole line of the form: #include "name"
var includeRe = regexp.MustCompile(`^\s*#include\s+"([\w./-]+)"\s*$`)

type preProcessor struct {
	snippets map[string]string
	included []string
}

// PreProcessor expands #include directives in WGSL source. Each directive line is replaced
// with the named snippet, itself expanded recursively. A snippet is inserted at most once per
// Process call, so two programs sharing a dependency do not redeclare it.
type PreProcessor interface {
	// Process expands every #include line in source.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: ErrUnknownInclude or ErrIncludeCycle, wrapped with the offending line
	Process(source string) (string, error)

	// Included returns the snippet names inserted by the most recent Process call, in order.
	//
	// Returns:
	//   - []string: the included snippet names
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor over the given snippet table.
//
// Parameters:
//   - snippets: WGSL sources keyed by include name, may be nil
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(snippets map[string]string) PreProcessor {
	if snippets == nil {
		snippets = map[string]string{}
	}
	return &preProcessor{snippets: snippets}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := map[string]bool{}
	return p.expand(source, seen, nil)
}

func (p *preProcessor) Included() []string {
	return p.included
}

func (p *preProcessor) expand(source string, seen map[string]bool, stack []string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		m := includeRe.FindStringSubmatch(line)
		if m == nil {
			out = append(out, line)
			continue
		}

		name := m[1]
		for _, s := range stack {
			if s == name {
				return "", fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(stack, " -> "), name)
			}
		}
		if seen[name] {
			continue
		}
		snippet, ok := p.snippets[name]
		if !ok {
			return "", fmt.Errorf("line %d: %w %q", i+1, ErrUnknownInclude, name)
		}

		body, err := p.expand(snippet, seen, append(stack, name))
		if err != nil {
			return "", err
		}
		seen[name] = true
		p.included = append(p.included, name)
		out = append(out, body)
	}
	return strings.Join(out, "\n"), nil
}
