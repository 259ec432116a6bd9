package parser

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
		expectedNotes string
	}{
		{
			name:          "Simple front and back",
			input:         "F: What is the capital of France?\nB: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
			expectedNotes: "",
		},
		{
			name:          "Front, back and notes",
			input:         "F: What is 1+1?\nB: 2\nN: Basic arithmetic",
			expectedCards: 1,
			expectedFront: "What is 1+1?",
			expectedBack:  "2",
			expectedNotes: "Basic arithmetic",
		},
		{
			name: "Multiline back",
			input: `
F: What are the primary colors?
B: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
			expectedNotes: "",
		},
		{
			name: "Separator between cards",
			input: `
F: First question
B: First answer
---
F: Second question
B: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "New front starts a new card without separator",
			input: `
F: First question
B: First answer

F: Second question
B: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "All fields with multiline back",
			input: `
F: What is Go?
B: A statically typed, compiled programming language.
It was designed at Google.
N: Programming Languages
`,
			expectedCards: 1,
			expectedFront: "What is Go?",
			expectedBack:  "A statically typed, compiled programming language.\nIt was designed at Google.",
			expectedNotes: "Programming Languages",
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no card markers.",
			expectedCards: 0,
		},
		{
			name:          "Back without a front is dropped",
			input:         "B: An answer with no question",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "F:Question\nB:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := strings.NewReader(tc.input)
			cards, err := Parse(r)
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}

			if tc.expectedCards == 1 {
				card := cards[0]
				if card.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, card.Front)
				}
				if card.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, card.Back)
				}
				if card.Notes != tc.expectedNotes {
					t.Errorf("Expected Notes to be '%s', but got '%s'", tc.expectedNotes, card.Notes)
				}
			}
		})
	}
}

func TestParseTrailingBlankLines(t *testing.T) {
	cards, err := Parse(strings.NewReader("F: q\nB: a\n\n\n"))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("Expected 1 card, but got %d", len(cards))
	}
	if cards[0].Back != "a" {
		t.Errorf("Expected trailing blank lines to be trimmed, got %q", cards[0].Back)
	}
}
