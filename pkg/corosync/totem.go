package corosync

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tuning errors
var (
	ErrTotemNotFound      = errors.New("no totem section in configuration document")
	ErrPartialApply       = errors.New("tuning parameters only partially applied")
	ErrVerificationFailed = errors.New("quorum not reachable after configuration reload")
)

// TuningParams are the consensus-timing overrides for wide-area links.
// All values are positive integers: milliseconds, except MaxMessages which
// is a message count. The five parameters travel together; applying a
// subset is a bug condition, not a valid state.
type TuningParams struct {
	Token       int `mapstructure:"token"`
	Consensus   int `mapstructure:"consensus"`
	Join        int `mapstructure:"join"`
	Hold        int `mapstructure:"hold"`
	MaxMessages int `mapstructure:"max_messages"`
}

// WANDefaults returns timings tolerant of high-RTT, lossy links.
func WANDefaults() TuningParams {
	return TuningParams{
		Token:       10000,
		Consensus:   12000,
		Join:        1000,
		Hold:        300,
		MaxMessages: 20,
	}
}

// Validate checks all five parameters are present and positive.
func (p TuningParams) Validate() error {
	for _, kv := range p.pairs() {
		if kv.value <= 0 {
			return fmt.Errorf("tuning parameter %s must be a positive integer, got %d", kv.key, kv.value)
		}
	}
	return nil
}

type totemPair struct {
	key   string
	value int
}

// pairs returns the parameters in a fixed application order so the edit is
// deterministic regardless of how the set was constructed.
func (p TuningParams) pairs() []totemPair {
	return []totemPair{
		{"token", p.Token},
		{"consensus", p.Consensus},
		{"join", p.Join},
		{"hold", p.Hold},
		{"max_messages", p.MaxMessages},
	}
}

var totemOpen = regexp.MustCompile(`^\s*totem\s*\{\s*$`)

// ApplyTotem upserts the tuning parameters into the totem section of a
// corosync-style configuration document and returns the edited document.
// Existing keys are updated in place with their indentation preserved;
// missing keys are inserted ahead of the section's closing brace. Keys
// inside nested subsections are never touched. The edit is idempotent:
// applying the same parameters twice yields an identical document.
func ApplyTotem(doc string, p TuningParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	lines := strings.Split(doc, "\n")
	start, end, err := totemBounds(lines)
	if err != nil {
		return "", err
	}

	for _, kv := range p.pairs() {
		lines, end = upsertKey(lines, start, end, kv.key, kv.value)
	}
	return strings.Join(lines, "\n"), nil
}

// VerifyTotem checks that every tuning parameter is present in the totem
// section with its expected value. Any missing key or mismatched value is
// reported as ErrPartialApply so an interrupted edit is never mistaken for
// success.
func VerifyTotem(doc string, p TuningParams) error {
	lines := strings.Split(doc, "\n")
	start, end, err := totemBounds(lines)
	if err != nil {
		return err
	}

	var bad []string
	for _, kv := range p.pairs() {
		idx := findKey(lines, start, end, kv.key)
		if idx < 0 {
			bad = append(bad, fmt.Sprintf("%s missing", kv.key))
			continue
		}
		_, raw := splitKeyLine(lines[idx])
		got, convErr := strconv.Atoi(raw)
		if convErr != nil || got != kv.value {
			bad = append(bad, fmt.Sprintf("%s=%s want %d", kv.key, raw, kv.value))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrPartialApply, strings.Join(bad, ", "))
	}
	return nil
}

// totemBounds locates the totem section, returning the indexes of its
// opening and closing brace lines.
func totemBounds(lines []string) (start, end int, err error) {
	start = -1
	for i, line := range lines {
		if totemOpen.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, 0, ErrTotemNotFound
	}

	depth := 0
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{")
		depth -= strings.Count(lines[i], "}")
		if depth == 0 {
			return start, i, nil
		}
	}
	return 0, 0, fmt.Errorf("totem section is not closed: %w", ErrTotemNotFound)
}

// findKey returns the index of the key's line among the section's direct
// children, or -1. Lines inside nested subsections are skipped.
func findKey(lines []string, start, end int, key string) int {
	depth := 0
	for i := start + 1; i < end; i++ {
		if depth == 0 {
			if k, _ := splitKeyLine(lines[i]); k == key {
				return i
			}
		}
		depth += strings.Count(lines[i], "{")
		depth -= strings.Count(lines[i], "}")
	}
	return -1
}

// upsertKey updates the key in place or inserts it before the closing
// brace, returning the adjusted lines and closing-brace index.
func upsertKey(lines []string, start, end int, key string, value int) ([]string, int) {
	if idx := findKey(lines, start, end, key); idx >= 0 {
		lines[idx] = fmt.Sprintf("%s%s: %d", indentOf(lines[idx]), key, value)
		return lines, end
	}

	entry := fmt.Sprintf("%s%s: %d", childIndent(lines, start, end), key, value)
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:end]...)
	out = append(out, entry)
	out = append(out, lines[end:]...)
	return out, end + 1
}

// splitKeyLine parses a "key: value" line into its parts; returns an empty
// key for anything else.
func splitKeyLine(line string) (key, value string) {
	trimmed := strings.TrimSpace(line)
	colon := strings.Index(trimmed, ":")
	if colon <= 0 || strings.Contains(trimmed, "{") {
		return "", ""
	}
	return strings.TrimSpace(trimmed[:colon]), strings.TrimSpace(trimmed[colon+1:])
}

func indentOf(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// childIndent picks the indentation of the section's first direct child,
// falling back to two spaces for an empty section.
func childIndent(lines []string, start, end int) string {
	for i := start + 1; i < end; i++ {
		if strings.TrimSpace(lines[i]) != "" {
			return indentOf(lines[i])
		}
	}
	return "  "
}
