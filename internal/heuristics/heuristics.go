// Package heuristics recovers leads from OCR text with regular expressions
// and a small context window around every line that looks like contact data.
package heuristics

import (
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/leadscan/internal/lead"
)

const (
	// WindowRadius is how many lines on each side of a trigger line belong
	// to its context window.
	WindowRadius = 2

	// MaxInfoRunes caps additional_info.
	MaxInfoRunes = 200
)

// Extract returns the leads found in text. It never fails; text with no
// recognizable contact data yields no leads.
func Extract(text string) []lead.Lead {
	lines := splitLines(text)

	// One lead per trigger window; overlapping windows are not merged.
	var leads []lead.Lead
	for i, line := range lines {
		if !isTrigger(line) {
			continue
		}
		if l, ok := fromWindow(lines, i); ok {
			leads = append(leads, l)
		}
	}
	if len(leads) > 0 {
		return leads
	}
	return positional(lines)
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// fromWindow builds a lead from the lines around trigger, first match wins
// per field.
func fromWindow(lines []string, trigger int) (lead.Lead, bool) {
	lo := max(trigger-WindowRadius, 0)
	hi := min(trigger+WindowRadius+1, len(lines))
	window := lines[lo:hi]
	joined := strings.Join(window, "\n")

	l := lead.Lead{
		Email:       findEmail(joined),
		Phone:       findPhone(joined),
		Name:        nearestName(lines, lo, hi, trigger),
		Title:       findTitle(joined),
		Company:     findCompany(joined),
		Website:     findWebsite(joined),
		SocialMedia: findSocial(joined),
	}
	if !l.HasContact() {
		return lead.Lead{}, false
	}
	l.AdditionalInfo = truncate(strings.Join(window, " "), MaxInfoRunes)
	return l, true
}

// nearestName prefers the trigger line, then the closest line above or
// below it within [lo, hi).
func nearestName(lines []string, lo, hi, trigger int) string {
	if n := findName(lines[trigger]); n != "" {
		return n
	}
	for d := 1; d <= WindowRadius; d++ {
		if i := trigger - d; i >= lo {
			if n := findName(lines[i]); n != "" {
				return n
			}
		}
		if i := trigger + d; i < hi {
			if n := findName(lines[i]); n != "" {
				return n
			}
		}
	}
	return ""
}

// positional pairs the document-wide emails, phones and names by index.
// It scans the text as a whole, so it finds names and phone numbers that
// OCR wrapped across lines, which no single trigger line can match.
func positional(lines []string) []lead.Lead {
	text := strings.Join(lines, "\n")
	emails := emailRe.FindAllString(text, -1)
	var phones []string
	for _, m := range phoneRe.FindAllString(text, -1) {
		phones = append(phones, findPhone(m))
	}
	return zip(emails, phones, findNames(text))
}

func zip(emails, phones, names []string) []lead.Lead {
	n := max(len(emails), len(phones), len(names))
	var leads []lead.Lead
	for i := range n {
		l := lead.Lead{
			Email: at(emails, i),
			Phone: at(phones, i),
			Name:  at(names, i),
		}
		if l.HasContact() {
			leads = append(leads, l)
		}
	}
	return leads
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
