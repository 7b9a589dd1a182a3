package text_test

import (
	"testing"

	"github.com/book-expert/voice-cloner/internal/tts/text"
	"github.com/stretchr/testify/assert"
)

// preprocessorTestCase defines a standard test case for the preprocessor.
type preprocessorTestCase struct {
	name     string
	input    string
	expected string
}

func runPreprocessorTests(t *testing.T, tests []preprocessorTestCase) {
	t.Helper()

	preprocessor := text.NewPreprocessor()

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, preprocessor.PreprocessText(testCase.input))
		})
	}
}

func TestPreprocessor_PreprocessText_EmptyInput(t *testing.T) {
	t.Parallel()

	preprocessor := text.NewPreprocessor()

	assert.Empty(t, preprocessor.PreprocessText(""))
	assert.Empty(t, preprocessor.PreprocessText("   \n\t "))
}

func TestPreprocessor_PreprocessText_DefaultSentence(t *testing.T) {
	t.Parallel()

	sentence := "Let's strive to make the world a better place, one code block at a time."

	assert.Equal(t, sentence, text.NewPreprocessor().PreprocessText(sentence))
}

func TestPreprocessor_PreprocessText_AbbreviationExpansion(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{name: "Mr expansion", input: "Mr. Smith", expected: "Mister Smith."},
		{name: "Dr expansion", input: "Dr. Johnson", expected: "Doctor Johnson."},
		{name: "Multiple abbreviations", input: "Mr. and Mrs. Smith", expected: "Mister and Misses Smith."},
		{name: "Inc. expansion", input: "Future Tech Inc.", expected: "Future Tech Incorporated."},
		{
			name:     "Street abbreviation kept",
			input:    "Meet me on Main St. at noon.",
			expected: "Meet me on Main St. at noon.",
		},
	})
}

func TestPreprocessor_PreprocessText_NumberNormalization(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{name: "Single digit number", input: "There are 3 cars.", expected: "There are three cars."},
		{name: "Zero", input: "I have 0 regrets.", expected: "I have zero regrets."},
		{name: "Teen number", input: "I have 17 friends.", expected: "I have seventeen friends."},
		{name: "Two-digit number", input: "The answer is 42.", expected: "The answer is forty two."},
		{name: "Hundred number", input: "He has 100 dollars.", expected: "He has one hundred dollars."},
		{
			name:     "Complex hundred number",
			input:    "The building is 356 feet tall.",
			expected: "The building is three hundred fifty six feet tall.",
		},
		{name: "Thousand number", input: "About 5000 people attended.", expected: "About five thousand people attended."},
		{
			name:     "Thousands with remainder",
			input:    "It cost 12045 coins.",
			expected: "It cost twelve thousand forty five coins.",
		},
		{
			name:     "Maximum number",
			input:    "The max value is 999999.",
			expected: "The max value is nine hundred ninety nine thousand nine hundred ninety nine.",
		},
		{name: "Number over the limit", input: "A million is 1000000.", expected: "A million is 1000000."},
		{name: "Grouped thousands kept", input: "We hired 1,000 people.", expected: "We hired 1,000 people."},
		{name: "Grouped millions kept", input: "It sold 2,500,000 copies", expected: "It sold 2,500,000 copies."},
		{name: "Decimal kept", input: "Pi is 3.14 today.", expected: "Pi is 3.14 today."},
		{name: "Leading zeros kept", input: "Call 007 now.", expected: "Call 007 now."},
		{name: "Number before comma", input: "I have 42, maybe 43.", expected: "I have forty two, maybe forty three."},
	})
}

func TestPreprocessor_PreprocessText_TokenPreservation(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{
			name:     "URL only",
			input:    "Please visit https://example.com for more info.",
			expected: "Please visit https://example.com for more info.",
		},
		{
			name:     "URL with digits",
			input:    "Open https://example.com/v2/items/42 now",
			expected: "Open https://example.com/v2/items/42 now.",
		},
		{
			name:     "Email only",
			input:    "Contact us at support@example.org.",
			expected: "Contact us at support@example.org.",
		},
		{
			name:     "URL and Email mixed with other processing",
			input:    "Mr. Doe's site is http://johndoe.com, email him at john.doe2@email.com for 1 copy.",
			expected: "Mister Doe's site is http://johndoe.com, email him at john.doe2@email.com for one copy.",
		},
	})
}

func TestPreprocessor_PreprocessText_WhitespaceAndFormatting(t *testing.T) {
	t.Parallel()

	runPreprocessorTests(t, []preprocessorTestCase{
		{name: "Multiple spaces", input: "Hello   world", expected: "Hello world."},
		{name: "Tabs and newlines", input: "Line 1\nand\tline 2.", expected: "Line one and line two."},
		{name: "Smart quotes", input: "He said, “Hello.”", expected: `He said, "Hello."`},
		{
			name:     "Various dashes",
			input:    "This is a range (1–5) — it's important.",
			expected: "This is a range (one-five) - it's important.",
		},
		{name: "Excessive punctuation", input: "Hello!!! How are you??", expected: "Hello! How are you?"},
		{name: "Ellipsis kept", input: "Wait… what?", expected: "Wait... what?"},
		{name: "No final punctuation", input: "This sentence has no end", expected: "This sentence has no end."},
		{name: "Already has final punctuation", input: "Are you sure?", expected: "Are you sure?"},
	})
}

func TestPreprocessor_PreprocessText_Comprehensive(t *testing.T) {
	t.Parallel()

	input := "  Dr. Smith's latest paper is at " +
		"http://example.com. It discusses 10 key findings. Contact him at dr.smith@example.org!!  "
	expected := "Doctor Smith's latest paper is at http://example.com. " +
		"It discusses ten key findings. Contact him at dr.smith@example.org!"

	assert.Equal(t, expected, text.NewPreprocessor().PreprocessText(input))
}
