package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	levelMet    = 1.0
	levelNotMet = 0.5
)

var yearsPattern = regexp.MustCompile(`(?i)(\d+)\s*\+?\s*(?:years?|yrs?)\b`)

// ParseYears returns the first "<number> years" figure in text, or 0.
func ParseYears(text string) int {
	match := yearsPattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0
	}
	years, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return years
}

// ExperienceLevelFromYears maps years of experience onto a level.
func ExperienceLevelFromYears(years int) ExperienceLevel {
	switch {
	case years < 1:
		return ExperienceNone
	case years < 3:
		return ExperienceJunior
	case years < 6:
		return ExperienceMid
	default:
		return ExperienceSenior
	}
}

// ParseExperienceLevel reads a level label such as "Senior" or "entry".
func ParseExperienceLevel(label string) ExperienceLevel {
	label = strings.ToLower(label)
	switch {
	case containsAny(label, "senior", "lead", "principal", "staff"):
		return ExperienceSenior
	case containsAny(label, "mid", "intermediate", "middle"):
		return ExperienceMid
	case containsAny(label, "junior", "entry", "trainee"):
		return ExperienceJunior
	default:
		return ExperienceNone
	}
}

// educationRule matches long keywords anywhere in the text and
// abbreviations only as whole words, so "Mumbai" is not an MBA.
type educationRule struct {
	level         EducationLevel
	keywords      []string
	abbreviations *regexp.Regexp
}

func (r educationRule) matches(text string) bool {
	if containsAny(text, r.keywords...) {
		return true
	}
	return r.abbreviations != nil && r.abbreviations.MatchString(text)
}

func wholeWords(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, word := range words {
		quoted[i] = regexp.QuoteMeta(word)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// educationRules is ordered from the highest level down.
var educationRules = []educationRule{
	{EducationDoctorate, []string{"doctorate"}, wholeWords("phd", "ph.d")},
	{EducationMaster, []string{"master"}, wholeWords("msc", "m.sc", "mba")},
	{EducationBachelor, []string{"bachelor", "undergraduate degree"}, wholeWords("bsc", "b.sc", "b.tech")},
	{EducationSecondary, []string{"diploma", "high school", "higher secondary", "secondary school"}, nil},
}

// EducationLevelFromText returns the highest level mentioned in text.
func EducationLevelFromText(text string) EducationLevel {
	text = strings.ToLower(text)
	for _, rule := range educationRules {
		if rule.matches(text) {
			return rule.level
		}
	}
	return EducationBelowSecondary
}

// RequiredEducationFromText returns the lowest level mentioned in an
// eligibility statement, since "bachelor or master" admits a bachelor.
func RequiredEducationFromText(text string) EducationLevel {
	text = strings.ToLower(text)
	for i := len(educationRules) - 1; i >= 0; i-- {
		if educationRules[i].matches(text) {
			return educationRules[i].level
		}
	}
	return EducationBelowSecondary
}

// ParseEducationLevel reads an explicit level label.
func ParseEducationLevel(label string) EducationLevel {
	return EducationLevelFromText(label)
}

// LevelScore is 1.0 when have meets need and 0.5 otherwise.
func LevelScore[T ~int](have, need T) float64 {
	if have >= need {
		return levelMet
	}
	return levelNotMet
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
