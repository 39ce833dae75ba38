package services

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 150
)

// TextChunker splits a transcript into overlapping pieces small enough to embed.
type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText implements TextChunker. Turns (paragraphs separated by a blank line) are kept
// whole when they fit; longer turns are split on sentence boundaries. Sizes are in runes.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var pieces []string
	for _, turn := range strings.Split(text, "\n\n") {
		turn = strings.TrimSpace(turn)
		if turn == "" {
			continue
		}
		if utf8.RuneCountInString(turn) <= maxChunkSize {
			pieces = append(pieces, turn)
			continue
		}
		pieces = append(pieces, splitLongTurn(turn, maxChunkSize)...)
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		currentLen = 0

		if tail := lastRunes(chunk, overlap); tail != "" {
			current.WriteString(tail)
			currentLen = utf8.RuneCountInString(tail)
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+pieceLen+2 > maxChunkSize {
			flush()
			// The overlap tail alone must leave room for the next piece.
			if currentLen+pieceLen+2 > maxChunkSize {
				current.Reset()
				currentLen = 0
			}
		}

		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(piece)
		currentLen += pieceLen
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitLongTurn packs sentences into pieces of at most maxSize runes. A single sentence longer
// than maxSize is cut hard.
func splitLongTurn(turn string, maxSize int) []string {
	var pieces []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitIntoSentences(turn) {
		for utf8.RuneCountInString(sentence) > maxSize {
			runes := []rune(sentence)
			if currentLen > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
				currentLen = 0
			}
			pieces = append(pieces, string(runes[:maxSize]))
			sentence = strings.TrimSpace(string(runes[maxSize:]))
		}
		if sentence == "" {
			continue
		}

		sentenceLen := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+sentenceLen+1 > maxSize {
			pieces = append(pieces, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString(" ")
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}

	if currentLen > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// splitIntoSentences keeps the terminating punctuation with each sentence.
func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
