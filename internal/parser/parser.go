// Package parser extracts flashcards from plain markdown files. A card is a
// "F:" front block followed by a "B:" back block and an optional "N:" notes
// block; "---" separates cards.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	frontPrefix = "F:"
	backPrefix  = "B:"
	notesPrefix = "N:"
	separator   = "---"
)

// ParsedCard is raw card content before it enters the store.
type ParsedCard struct {
	Front string
	Back  string
	Notes string
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]ParsedCard, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from r and extracts all cards. A card without a front is
// dropped; continuation lines belong to the most recent block.
func Parse(r io.Reader) ([]ParsedCard, error) {
	var cards []ParsedCard
	var current ParsedCard
	var block []string
	target := "" // which field the open block belongs to

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(block, "\n"), "\n")
		switch target {
		case frontPrefix:
			current.Front = content
		case backPrefix:
			current.Back = content
		case notesPrefix:
			current.Notes = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			cards = append(cards, current)
		}
		current = ParsedCard{}
		target = ""
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == separator {
			finishCard()
			continue
		}

		prefix := blockPrefix(line)
		switch {
		case prefix == frontPrefix && target != "":
			// A new front always starts a new card.
			finishCard()
			fallthrough
		case prefix != "":
			flushBlock()
			target = prefix
			block = append(block, strings.TrimPrefix(strings.TrimPrefix(line, prefix), " "))
		case target != "":
			block = append(block, line)
		}
	}
	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

func blockPrefix(line string) string {
	for _, p := range []string{frontPrefix, backPrefix, notesPrefix} {
		if strings.HasPrefix(line, p) {
			return p
		}
	}
	return ""
}
