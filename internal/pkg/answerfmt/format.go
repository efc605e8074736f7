package answerfmt

import "strings"

// Kind selects the normalization rules applied to one section of an answer.
type Kind string

const (
	KindMain         Kind = "main"
	KindDeepAnalysis Kind = "deep_analysis"
	KindCode         Kind = "code"
)

// DeepAnalysisSections are the headings the deep-analysis prompt asks for.
// Models often glue them to the end of the previous sentence.
var DeepAnalysisSections = []string{
	"## Problem Analysis",
	"## Required Knowledge",
	"## Solution Path",
	"## Key Insights",
}

// Format puts a blank line in front of headings and horizontal rules (and code
// fences for KindCode), collapses runs of blank lines for KindMain, and trims
// the result. Lines inside fenced code blocks are left untouched. Applying
// Format twice gives the same result as applying it once.
func Format(text string, kind Kind) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if kind == KindDeepAnalysis {
		lines = splitGluedSections(lines, DeepAnalysisSections)
	}

	out := make([]string, 0, len(lines)+8)
	inFence := false
	afterFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inFence {
			out = append(out, line)
			if isFence(trimmed) {
				inFence = false
				afterFence = true
			}
			continue
		}

		if trimmed == "" {
			if kind == KindMain && lastIsBlank(out) {
				continue
			}
			out = append(out, line)
			afterFence = false
			continue
		}

		fence := isFence(trimmed)
		needsGap := isHeading(trimmed) || isRule(trimmed)
		if kind == KindCode && (fence || afterFence) {
			needsGap = true
		}
		if needsGap && len(out) > 0 && !lastIsBlank(out) {
			out = append(out, "")
		}
		out = append(out, line)
		afterFence = false
		if fence {
			inFence = true
		}
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// splitGluedSections moves every occurrence of a section title that does not
// start its line onto a line of its own. Fenced code is skipped.
func splitGluedSections(lines []string, titles []string) []string {
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isFence(trimmed) {
			inFence = !inFence
			out = append(out, line)
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		rest := line
		for {
			idx := firstGluedTitle(rest, titles)
			if idx < 0 {
				break
			}
			out = append(out, strings.TrimRight(rest[:idx], " \t"))
			rest = rest[idx:]
		}
		out = append(out, rest)
	}
	return out
}

// firstGluedTitle returns the earliest index of a title preceded by
// non-whitespace text on the same line, or -1.
func firstGluedTitle(line string, titles []string) int {
	best := -1
	for _, title := range titles {
		from := 0
		for {
			idx := strings.Index(line[from:], title)
			if idx < 0 {
				break
			}
			idx += from
			if strings.TrimSpace(line[:idx]) != "" {
				if best < 0 || idx < best {
					best = idx
				}
				break
			}
			from = idx + len(title)
		}
	}
	return best
}

func lastIsBlank(out []string) bool {
	return len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == ""
}

func isFence(trimmed string) bool {
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// isHeading reports ATX headings: one to six '#' followed by a space or the end.
func isHeading(trimmed string) bool {
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return false
	}
	return n == len(trimmed) || trimmed[n] == ' ' || trimmed[n] == '\t'
}

// isRule reports thematic breaks made of three or more '-', '*' or '_'.
func isRule(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	c := trimmed[0]
	if c != '-' && c != '*' && c != '_' {
		return false
	}
	for i := 1; i < len(trimmed); i++ {
		if trimmed[i] != c {
			return false
		}
	}
	return true
}
