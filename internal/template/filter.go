// Package template implements the fill pipeline for structured documents:
// strip boilerplate, detect placeholder fields, classify them, generate
// retrieval questions, pull evidence and splice values back into the
// source text.
package template

import (
	"regexp"
	"strings"
)

// Content-start markers. Everything above the first one is candidate
// boilerplate; everything from it on is kept verbatim.
var contentStartRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(section|chapter)\s+\d+`),
	regexp.MustCompile(`(?i)^\s*\d+(\.\d+)*\s+(executive\s+summary|introduction|scope|purpose)\b`),
}

// A line carrying a placeholder is real content even when no section
// heading preceded it.
var placeholderLineRe = regexp.MustCompile(`\[[^\]]*\]|\{[^}]*\}|<[^>]*>|_{3,}|\.{3,}\s*$|:\s*$`)

// Boilerplate rules applied above the content start.
var skipLineRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*table\s+of\s+contents\s*$`),
	regexp.MustCompile(`(?i)^\s*contents\s*$`),
	regexp.MustCompile(`(?i)^\s*s\.?\s*no\.?\s+contents\b`),
	regexp.MustCompile(`\.{3,}\s*\d*\s*$`),
	regexp.MustCompile(`(?i)^\s*\d+(\.\d+)*\s{2,}\S.*$`),
	regexp.MustCompile(`(?i)^\s*page\s+\d+(\s+of\s+\d+)?\s*$`),
	regexp.MustCompile(`(?i)^\s*(header|footer)\s*:`),
	regexp.MustCompile(`(?i)^\s*confidential\s*$`),
	regexp.MustCompile(`(?i)^\s*(copyright\b|©)`),
	regexp.MustCompile(`^\s*\d+\s*$`),
}

// findContentStart returns the index of the first real-content line. A
// template with no marker at all starts at line 0 so colon fields near the
// top are never lost.
func findContentStart(lines []string) int {
	tocSeen := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(trimmed, "table of contents") || strings.EqualFold(trimmed, "contents") {
			tocSeen = true
			continue
		}
		if isSkippableLine(trimmed) {
			continue
		}
		for _, re := range contentStartRes {
			if re.MatchString(trimmed) {
				return i
			}
		}
		// Inside a TOC only a section heading ends it; elsewhere the first
		// placeholder-bearing line is already content.
		if !tocSeen && placeholderLineRe.MatchString(line) {
			return i
		}
	}
	return 0
}

func isSkippableLine(trimmed string) bool {
	for _, re := range skipLineRes {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// filterContent removes boilerplate lines above the content start and
// returns the surviving lines. Used for analysis output; the fill path
// keeps original offsets and only skips the same lines during detection.
func filterContent(text string) (string, int) {
	lines := strings.Split(text, "\n")
	start := findContentStart(lines)
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		if i < start && (isSkippableLine(strings.TrimSpace(line)) || strings.TrimSpace(line) == "") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), start
}
