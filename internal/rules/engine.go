// Package rules cleans up dictated prompt text with deterministic
// substitutions loaded from a user-editable file. Speech models mangle
// project jargon ("deep gram", "solid complaint"); a rules file lets the
// user pin the spellings they actually want before a prompt reaches the
// agent.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Engine applies the loaded substitutions to dictated text until the text
// stops changing or the iteration limit is reached. A zero-rule engine is a
// pass-through.
type Engine struct {
	rules []rule
	limit int
}

// rule is one compiled substitution. Literal rules always replace every
// occurrence; sed-style rules replace only the first match unless the g
// flag was given.
type rule struct {
	re          *regexp.Regexp
	replacement string
	firstOnly   bool
}

// Load reads and compiles a rules file. A missing file or empty path yields
// an engine with no rules, so an unconfigured setup just passes text through.
func Load(path string, limit int) (*Engine, error) {
	if limit <= 0 {
		limit = 30
	}
	if strings.TrimSpace(path) == "" {
		return &Engine{limit: limit}, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Engine{limit: limit}, nil
		}
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	rules, err := parse(string(contents))
	if err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}
	return &Engine{rules: rules, limit: limit}, nil
}

// Count reports how many rules were loaded.
func (e *Engine) Count() int {
	return len(e.rules)
}

// Apply rewrites text with every rule in file order, repeating the pass
// until a full pass changes nothing. The iteration limit caps rule sets
// that feed their own output (a => aa).
func (e *Engine) Apply(text string) (string, error) {
	result := text
	for i := 0; i < e.limit; i++ {
		changed := false
		for _, r := range e.rules {
			next := r.apply(result)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

func (r rule) apply(input string) string {
	if !r.firstOnly {
		return r.re.ReplaceAllString(input, r.replacement)
	}

	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input
	}
	replaced := r.re.ReplaceAllString(input[loc[0]:loc[1]], r.replacement)
	return input[:loc[0]] + replaced + input[loc[1]:]
}

// parse compiles the two supported line forms, skipping blanks and
// # comments:
//
//	spoken form => written form
//	s/pattern/replacement/flags
func parse(contents string) ([]rule, error) {
	var rules []rule
	for index, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var (
			r   rule
			err error
		)
		switch {
		case looksLikeSedRule(line):
			r, err = parseSedRule(line)
		case strings.Contains(line, "=>"):
			r, err = parseLiteralRule(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// parseLiteralRule compiles "from => to" into a case-insensitive
// replace-everywhere rule.
func parseLiteralRule(line string) (rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return rule{}, errors.New("literal rule source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return rule{}, fmt.Errorf("invalid literal source: %w", err)
	}
	return rule{re: re, replacement: to}, nil
}

// parseSedRule compiles "s<delim>pattern<delim>replacement<delim>flags".
// Matching is case-insensitive unless overridden; supported flags are
// i, g, m, and s.
func parseSedRule(line string) (rule, error) {
	delim := line[1]

	pattern, pos, err := splitDelimited(line, 2, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid pattern: %w", err)
	}
	replacement, pos, err := splitDelimited(line, pos, delim)
	if err != nil {
		return rule{}, fmt.Errorf("invalid replacement: %w", err)
	}

	global := false
	multiLine := false
	dotAll := false
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
			// already the default
		case 'g':
			global = true
		case 'm':
			multiLine = true
		case 's':
			dotAll = true
		default:
			return rule{}, fmt.Errorf("unsupported flag %q", flag)
		}
	}

	prefix := "i"
	if multiLine {
		prefix += "m"
	}
	if dotAll {
		prefix += "s"
	}

	re, err := regexp.Compile("(?" + prefix + ")" + pattern)
	if err != nil {
		return rule{}, fmt.Errorf("invalid regex: %w", err)
	}
	return rule{re: re, replacement: replacement, firstOnly: !global}, nil
}

// splitDelimited scans up to the next unescaped delimiter. A backslash
// escapes the delimiter itself; any other escape is kept verbatim so regex
// escapes like \b survive.
func splitDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			if char != delim {
				builder.WriteByte('\\')
			}
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func looksLikeSedRule(line string) bool {
	if len(line) < 2 || line[0] != 's' {
		return false
	}
	delim := line[1]
	switch {
	case delim >= 'a' && delim <= 'z', delim >= 'A' && delim <= 'Z':
		return false
	case delim >= '0' && delim <= '9':
		return false
	case delim == ' ', delim == '\t':
		return false
	}
	return true
}
