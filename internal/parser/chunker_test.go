package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func sampleText(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		b.WriteString("palabra")
		b.WriteByte(byte('a' + i%26))
		b.WriteByte(' ')
	}
	return b.String()[:n]
}

func TestFixedSplitterOverlap(t *testing.T) {
	text := sampleText(2600)
	s := FixedSplitter{Size: 1000, Overlap: 200}

	chunks, err := s.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 1000, "chunk %d", i)
	}
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		require.True(t, strings.HasPrefix(chunks[i], string(prev[len(prev)-200:])), "chunk %d must start with the tail of chunk %d", i, i-1)
	}
	require.True(t, strings.HasSuffix(strings.TrimSpace(text), chunks[len(chunks)-1]))
}

func TestFixedSplitterDeterministic(t *testing.T) {
	text := sampleText(5000)
	s := FixedSplitter{Size: 1000, Overlap: 200}

	first, err := s.Split(text)
	require.NoError(t, err)
	second, err := s.Split(text)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestFixedSplitterShortAndEmpty(t *testing.T) {
	s := FixedSplitter{Size: 1000, Overlap: 200}

	chunks, err := s.Split("  hola mundo \n")
	require.NoError(t, err)
	require.Equal(t, []string{"hola mundo"}, chunks)

	chunks, err = s.Split(" \n\t ")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestFixedSplitterCountsRunes(t *testing.T) {
	text := strings.Repeat("ñ", 1500)
	chunks, err := FixedSplitter{Size: 1000, Overlap: 200}.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, 1000, utf8.RuneCountInString(chunks[0]))
	require.Equal(t, 700, utf8.RuneCountInString(chunks[1]))
}

func TestRecursiveSplitter(t *testing.T) {
	text := strings.Repeat(sampleText(400)+"\n\n", 6)
	chunks, err := RecursiveSplitter{Size: 1000, Overlap: 200}.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(c), 1000)
		require.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestNewSplitter(t *testing.T) {
	s, err := NewSplitter("fixed", 1000, 200)
	require.NoError(t, err)
	require.IsType(t, FixedSplitter{}, s)

	s, err = NewSplitter("recursive", 1000, 200)
	require.NoError(t, err)
	require.IsType(t, RecursiveSplitter{}, s)

	_, err = NewSplitter("semantic", 1000, 200)
	require.Error(t, err)

	_, err = NewSplitter("fixed", 100, 100)
	require.Error(t, err)
}

func TestSplitterRejectsStalledWindow(t *testing.T) {
	text := strings.Repeat("a", 25)
	tests := map[string]Splitter{
		"fixed overlap equals size":     FixedSplitter{Size: 10, Overlap: 10},
		"fixed overlap exceeds size":    FixedSplitter{Size: 10, Overlap: 15},
		"fixed negative overlap":        FixedSplitter{Size: 10, Overlap: -1},
		"fixed zero size":               FixedSplitter{Size: 0},
		"recursive overlap equals size": RecursiveSplitter{Size: 10, Overlap: 10},
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() {
				_, err := s.Split(text)
				done <- err
			}()
			select {
			case err := <-done:
				require.Error(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("Split did not return")
			}
		})
	}

	chunks, err := FixedSplitter{Size: 10, Overlap: 0}.Split(text)
	require.NoError(t, err)
	require.Equal(t, []string{strings.Repeat("a", 10), strings.Repeat("a", 10), strings.Repeat("a", 5)}, chunks)
}
