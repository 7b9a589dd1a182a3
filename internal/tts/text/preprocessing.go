// Package text normalises user-typed sentences before they reach the cloning
// engine, so numbers, abbreviations and typographic punctuation are spoken
// the way a reader would say them.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// NumberBaseTen represents the base for decimal number system.
	NumberBaseTen = 10
	// NumberBaseTwenty represents the boundary for teen numbers.
	NumberBaseTwenty = 20
	// NumberBaseHundred represents the base for hundreds.
	NumberBaseHundred = 100
	// NumberBaseThousand represents the base for thousands.
	NumberBaseThousand = 1000
	// MaxNumberForWords represents the maximum number that can be converted to words.
	MaxNumberForWords = 999999
)

// Regex patterns for text preprocessing.
const (
	urlRegexPattern        = `https?://\S+`
	emailRegexPattern      = `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`
	numberRegexPattern     = `\d(?:[\d,.]*\d)?`
	whitespaceRegexPattern = `\s+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
	// Repeats of these marks collapse to one; repeated periods are an ellipsis.
	collapsiblePunctuation = "!?,;:"
	// Trailing closers are skipped when checking for a sentence terminator.
	closingMarks = `"')]`
	// Preserved tokens are swapped for private-use runes starting here.
	placeholderBase = 0xE000
)

// Preprocessor normalises text for speech synthesis.
type Preprocessor struct {
	urlPattern           *regexp.Regexp
	emailPattern         *regexp.Regexp
	numberPattern        *regexp.Regexp
	whitespacePattern    *regexp.Regexp
	abbreviationReplacer *strings.Replacer
	typographyReplacer   *strings.Replacer
}

// NewPreprocessor creates a new text preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
	}

	typography := []string{
		emDash, "-",
		enDash, "-",
		figureDash, "-",
		ellipsisChar, ellipsis,
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	}

	return &Preprocessor{
		urlPattern:           regexp.MustCompile(urlRegexPattern),
		emailPattern:         regexp.MustCompile(emailRegexPattern),
		numberPattern:        regexp.MustCompile(numberRegexPattern),
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		typographyReplacer:   strings.NewReplacer(typography...),
	}
}

// PreprocessText normalises text for the engine. URLs and email addresses
// pass through untouched.
func (p *Preprocessor) PreprocessText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	preserved, tokens := p.preserveTokens(text)

	normalized := p.abbreviationReplacer.Replace(preserved)
	normalized = p.normalizeNumbers(normalized)
	normalized = p.typographyReplacer.Replace(normalized)
	normalized = p.normalizeWhitespace(normalized)
	normalized = collapseRepeatedPunctuation(normalized)
	normalized = restoreTokens(normalized, tokens)

	return ensureSentenceEnding(normalized)
}

// normalizeNumbers converts plain integers to words. Grouped numbers,
// decimals and digit strings with leading zeros are left as written.
func (p *Preprocessor) normalizeNumbers(text string) string {
	return p.numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		if strings.ContainsAny(s, ",.") || (len(s) > 1 && s[0] == '0') {
			return s
		}

		num, err := strconv.Atoi(s)
		if err != nil {
			return s
		}

		return integerToWords(num)
	})
}

// preserveTokens swaps URLs and emails for single placeholder runes that no
// later step rewrites.
func (p *Preprocessor) preserveTokens(text string) (string, []string) {
	var tokens []string

	replace := func(pattern *regexp.Regexp, input string) string {
		return pattern.ReplaceAllStringFunc(input, func(match string) string {
			placeholder := string(rune(placeholderBase + len(tokens)))
			tokens = append(tokens, match)

			return placeholder
		})
	}

	processed := replace(p.urlPattern, text)
	processed = replace(p.emailPattern, processed)

	return processed, tokens
}

func restoreTokens(text string, tokens []string) string {
	for index, token := range tokens {
		text = strings.Replace(text, string(rune(placeholderBase+index)), token, 1)
	}

	return text
}

func (p *Preprocessor) normalizeWhitespace(text string) string {
	return strings.TrimSpace(p.whitespacePattern.ReplaceAllString(text, " "))
}

func collapseRepeatedPunctuation(text string) string {
	var builder strings.Builder

	builder.Grow(len(text))

	var last rune

	for _, char := range text {
		if char == last && strings.ContainsRune(collapsiblePunctuation, char) {
			continue
		}

		builder.WriteRune(char)

		last = char
	}

	return builder.String()
}

func ensureSentenceEnding(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	body := strings.TrimRight(trimmed, closingMarks)

	lastChar, _ := utf8.DecodeLastRuneInString(body)
	switch lastChar {
	case '.', '!', '?':
		return trimmed
	default:
		return trimmed + "."
	}
}

var (
	onesWords = []string{
		"", "one", "two", "three", "four", "five",
		"six", "seven", "eight", "nine",
	}
	teensWords = []string{
		"ten", "eleven", "twelve", "thirteen", "fourteen",
		"fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	}
	tensWords = []string{
		"", "", "twenty", "thirty", "forty", "fifty",
		"sixty", "seventy", "eighty", "ninety",
	}
)

func underHundredToWords(num int) string {
	switch {
	case num < NumberBaseTen:
		return onesWords[num]
	case num < NumberBaseTwenty:
		return teensWords[num-NumberBaseTen]
	}

	result := tensWords[num/NumberBaseTen]
	if num%NumberBaseTen > 0 {
		result += " " + onesWords[num%NumberBaseTen]
	}

	return result
}

func underThousandToWords(num int) string {
	var parts []string

	if hundreds := num / NumberBaseHundred; hundreds > 0 {
		parts = append(parts, onesWords[hundreds]+" hundred")
	}

	if remainder := num % NumberBaseHundred; remainder > 0 {
		parts = append(parts, underHundredToWords(remainder))
	}

	return strings.Join(parts, " ")
}

// integerToWords converts an integer in [0, MaxNumberForWords] into English
// words; anything outside that range is returned as digits.
func integerToWords(number int) string {
	if number < 0 || number > MaxNumberForWords {
		return strconv.Itoa(number)
	}

	if number == 0 {
		return "zero"
	}

	var parts []string

	if thousands := number / NumberBaseThousand; thousands > 0 {
		parts = append(parts, underThousandToWords(thousands)+" thousand")
	}

	if remainder := number % NumberBaseThousand; remainder > 0 {
		parts = append(parts, underThousandToWords(remainder))
	}

	return strings.Join(parts, " ")
}
