// Package pattern compiles user-supplied removal patterns into matchers.
//
// User patterns keep their order and come first. When page-number removal is
// requested the compiler appends its built-in table, which is always treated
// as regular expressions regardless of the regex flag.
package pattern

import (
	"regexp"

	"github.com/gaurav-prasanna/epubclean/core"
	"gitlab.com/tozd/go/errors"
)

// pageNumberPatterns is the built-in page-number table. Callers get a copy
// from DefaultPageNumberPatterns and hand it to New.
var pageNumberPatterns = [...]string{
	`Page\s+\d+`,    // "Page 12" style markers
	`^\s*\d+\s*$`,   // a text node holding only a number
	`\[\s*\d+\s*\]`, // bracketed numbers such as "[12]"
}

// DefaultPageNumberPatterns returns the built-in page-number table.
func DefaultPageNumberPatterns() []string {
	return append([]string(nil), pageNumberPatterns[:]...)
}

// ErrNoPatterns is returned when neither patterns nor page-number removal
// were requested.
var ErrNoPatterns = errors.New("no patterns specified: use --remove or --remove-page-numbers")

// Options selects what to compile.
type Options struct {
	Patterns        []string
	Regex           bool // treat Patterns as regular expressions
	CaseInsensitive bool
	PageNumbers     bool // append the built-in page-number table
}

// Compiler turns Options into an ordered matcher list.
type Compiler struct {
	builtins []string
}

// New creates a Compiler that expands PageNumbers into builtins.
func New(builtins []string) *Compiler {
	return &Compiler{builtins: append([]string(nil), builtins...)}
}

// Builtins returns the page-number table this compiler expands.
func (c *Compiler) Builtins() []string {
	return append([]string(nil), c.builtins...)
}

// Compile builds the matchers. A regex that does not compile yields a
// *core.InvalidPatternError naming the offending source.
func (c *Compiler) Compile(opts Options) ([]core.Matcher, error) {
	if len(opts.Patterns) == 0 && !opts.PageNumbers {
		return nil, errors.WithStack(ErrNoPatterns)
	}

	matchers := make([]core.Matcher, 0, len(opts.Patterns)+len(c.builtins))
	for _, src := range opts.Patterns {
		m, err := compileOne(src, opts.Regex, opts.CaseInsensitive)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	if opts.PageNumbers {
		for _, src := range c.builtins {
			m, err := compileOne(src, true, opts.CaseInsensitive)
			if err != nil {
				return nil, err
			}
			matchers = append(matchers, m)
		}
	}

	return matchers, nil
}

func compileOne(src string, isRegex, caseInsensitive bool) (core.Matcher, error) {
	if src == "" {
		return core.Matcher{}, &core.InvalidPatternError{Pattern: src, Err: errors.New("empty pattern")}
	}

	expr := src
	if !isRegex {
		expr = regexp.QuoteMeta(src)
	}
	if caseInsensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return core.Matcher{}, &core.InvalidPatternError{Pattern: src, Err: err}
	}

	return core.Matcher{
		Source:          src,
		IsRegex:         isRegex,
		CaseInsensitive: caseInsensitive,
		Expr:            re,
	}, nil
}
