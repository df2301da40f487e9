package candidate

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
)

// patternTimeout bounds a single skip-pattern match against one candidate.
const patternTimeout = 100 * time.Millisecond

// Rule rejects a candidate based on the decimal form of its number.
type Rule interface {
	Rejects(s string) bool
	String() string
}

type literalRule struct {
	needle string
}

func (r literalRule) Rejects(s string) bool { return strings.Contains(s, r.needle) }
func (r literalRule) String() string        { return "contains " + strconv.Quote(r.needle) }

// patternRule uses ECMAScript syntax so lookaheads and backreferences in
// existing configs keep working. A match that errors counts as no match.
type patternRule struct {
	re *regexp2.Regexp
}

func (r patternRule) Rejects(s string) bool {
	ok, err := r.re.MatchString(s)
	return err == nil && ok
}

func (r patternRule) String() string { return "matches " + r.re.String() }

// Filter is an ordered list of exclusion rules. A nil Filter excludes nothing.
type Filter struct {
	rules   []Rule
	invalid []string
}

// NewFilter compiles the literal and pattern rules. Patterns that fail to
// compile are logged and ignored so the run can continue.
func NewFilter(literals, patterns []string, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Filter{}
	for _, lit := range literals {
		if lit == "" {
			continue
		}
		f.rules = append(f.rules, literalRule{needle: lit})
	}
	for _, raw := range patterns {
		re, err := regexp2.Compile(raw, regexp2.ECMAScript)
		if err != nil {
			logger.Warn("invalid skip pattern ignored", zap.String("pattern", raw), zap.Error(err))
			f.invalid = append(f.invalid, raw)
			continue
		}
		re.MatchTimeout = patternTimeout
		f.rules = append(f.rules, patternRule{re: re})
	}
	return f
}

// Excludes reports whether n matches at least one rule.
func (f *Filter) Excludes(n int) bool {
	if f == nil {
		return false
	}
	s := strconv.Itoa(n)
	for _, r := range f.rules {
		if r.Rejects(s) {
			return true
		}
	}
	return false
}

// Rules returns the active rules.
func (f *Filter) Rules() []Rule {
	if f == nil {
		return nil
	}
	return append([]Rule(nil), f.rules...)
}

// Invalid returns the patterns that were dropped because they did not compile.
func (f *Filter) Invalid() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.invalid...)
}
