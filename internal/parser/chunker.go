package parser

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter cuts one document's text into ordered chunks.
type Splitter interface {
	Split(text string) ([]string, error)
}

// NewSplitter returns the splitter named by kind ("fixed" or "recursive").
func NewSplitter(kind string, size, overlap int) (Splitter, error) {
	if err := checkWindow(size, overlap); err != nil {
		return nil, err
	}
	switch kind {
	case "", "fixed":
		return FixedSplitter{Size: size, Overlap: overlap}, nil
	case "recursive":
		return RecursiveSplitter{Size: size, Overlap: overlap}, nil
	default:
		return nil, fmt.Errorf("unknown splitter: %s", kind)
	}
}

// FixedSplitter emits windows of Size characters that advance by
// Size-Overlap, so each chunk starts with the last Overlap characters of
// the previous one. Lengths are counted in runes.
type FixedSplitter struct {
	Size    int
	Overlap int
}

func (s FixedSplitter) Split(text string) ([]string, error) {
	if err := checkWindow(s.Size, s.Overlap); err != nil {
		return nil, err
	}
	return chunkContent(text, s.Size, s.Overlap), nil
}

// checkWindow rejects windows that would not advance.
func checkWindow(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}

func chunkContent(content string, maxChars, overlapChars int) []string {
	content = strings.TrimSpace(content)
	if content == "" || maxChars <= 0 {
		return nil
	}

	runes := []rune(content)
	if len(runes) <= maxChars {
		return []string{content}
	}

	step := maxChars - overlapChars
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+maxChars, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// RecursiveSplitter prefers paragraph, line and word boundaries.
type RecursiveSplitter struct {
	Size    int
	Overlap int
}

func (s RecursiveSplitter) Split(text string) ([]string, error) {
	if err := checkWindow(s.Size, s.Overlap); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.Size),
		textsplitter.WithChunkOverlap(s.Overlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
