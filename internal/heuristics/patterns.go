package heuristics

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Optional leading 1, then 3-3-4 digits with common separators.
	phoneRe = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\b(\d{3})\)?[\s.\-]?(\d{3})[\s.\-]?(\d{4})\b`)

	nameRe = regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`)

	companyRe = regexp.MustCompile(`\b((?:[A-Z][A-Za-z0-9&']*[ \t]+)+)(Inc|LLC|L\.L\.C|Corp|Corporation|Ltd|Limited|Co|Company|Group|Technologies|Solutions|Systems|Partners|Industries|Enterprises|Labs|Holdings)\b\.?`)

	websiteRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"',;]+`)

	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/(?:in|company)/([A-Za-z0-9_\-]+)`)

	// Bare @handles must not be the tail of an email address.
	twitterURLRe    = regexp.MustCompile(`(?i)\b(?:twitter|x)\.com/([A-Za-z0-9_]{1,15})\b`)
	twitterHandleRe = regexp.MustCompile(`(?:^|[^\w@.])@([A-Za-z0-9_]{1,15})\b`)
)

// titleVocabulary is matched as whole words, case-insensitively, in order.
var titleVocabulary = []string{
	"Chief Executive Officer",
	"Chief Technology Officer",
	"Chief Financial Officer",
	"Vice President",
	"Co-Founder",
	"CEO", "CTO", "CFO", "COO", "CMO", "CIO", "VP",
	"President",
	"Founder",
	"Owner",
	"Partner",
	"Director",
	"Manager",
	"Engineer",
	"Developer",
	"Designer",
	"Consultant",
	"Analyst",
	"Architect",
	"Specialist",
	"Coordinator",
	"Administrator",
	"Executive",
	"Officer",
	"Representative",
	"Associate",
	"Head of",
}

var titleRes = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(titleVocabulary))
	for i, t := range titleVocabulary {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}()

// nameStopwords rejects two-word capitalized runs that are really company
// suffixes, job titles or address fragments.
var nameStopwords = func() map[string]bool {
	words := []string{
		"Inc", "Llc", "Corp", "Corporation", "Ltd", "Limited", "Company", "Group",
		"Technologies", "Solutions", "Systems", "Partners", "Industries",
		"Enterprises", "Labs", "Holdings",
		"President", "Founder", "Owner", "Director", "Manager", "Engineer",
		"Developer", "Designer", "Consultant", "Analyst", "Architect",
		"Specialist", "Coordinator", "Administrator", "Executive", "Officer",
		"Representative", "Associate", "Chief", "Vice", "Senior", "Head",
		"Street", "Avenue", "Road", "Suite", "Boulevard", "Drive", "Lane",
		"Phone", "Email", "Mobile", "Office", "Fax", "Tel", "Website",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()

func findEmail(s string) string {
	return emailRe.FindString(s)
}

func findPhone(s string) string {
	m := phoneRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return "(" + m[1] + ") " + m[2] + "-" + m[3]
}

func findNames(s string) []string {
	var out []string
	for _, m := range nameRe.FindAllStringSubmatch(s, -1) {
		if nameStopwords[m[1]] || nameStopwords[m[2]] {
			continue
		}
		out = append(out, m[1]+" "+m[2])
	}
	return out
}

func findName(s string) string {
	if names := findNames(s); len(names) > 0 {
		return names[0]
	}
	return ""
}

func findTitle(s string) string {
	for _, re := range titleRes {
		if m := re.FindString(s); m != "" {
			return m
		}
	}
	return ""
}

func findCompany(s string) string {
	m := companyRe.FindString(s)
	return strings.TrimSpace(m)
}

func findWebsite(s string) string {
	for _, m := range websiteRe.FindAllString(s, -1) {
		m = strings.TrimRight(m, ".)")
		// linkedin/twitter URLs are recorded as social handles
		lower := strings.ToLower(m)
		if strings.Contains(lower, "linkedin.com") || strings.Contains(lower, "twitter.com") {
			continue
		}
		return m
	}
	return ""
}

func findSocial(s string) map[string]string {
	social := map[string]string{}
	if m := linkedinRe.FindStringSubmatch(s); m != nil {
		social["linkedin"] = m[1]
	}
	if m := twitterURLRe.FindStringSubmatch(s); m != nil {
		social["twitter"] = "@" + m[1]
	} else if m := twitterHandleRe.FindStringSubmatch(s); m != nil {
		social["twitter"] = "@" + m[1]
	}
	if len(social) == 0 {
		return nil
	}
	return social
}

func isTrigger(line string) bool {
	return emailRe.MatchString(line) || phoneRe.MatchString(line) || findName(line) != ""
}
