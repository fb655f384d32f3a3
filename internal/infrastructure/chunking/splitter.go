package chunking

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 10000
	DefaultOverlap   = 3000
)

// separators are tried in order: paragraph, line, sentence, word, and finally
// a hard split at fixed rune offsets.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into passages of at most ChunkSize runes. Consecutive
// passages share up to Overlap runes, and the shared region is always a run of
// whole pieces so it is byte-identical in both passages.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

type span struct {
	start int
	end   int
}

func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	spans := s.split(trimmed)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		passage := strings.TrimSpace(trimmed[sp.start:sp.end])
		if passage != "" {
			out = append(out, passage)
		}
	}
	return out
}

// split returns byte spans over text. Each span after the first starts inside
// or at the end of its predecessor, so text[spans[0].start:spans[last].end]
// covers the whole input.
func (s *Splitter) split(text string) []span {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= s.ChunkSize {
		return []span{{start: 0, end: len(text)}}
	}

	atoms := s.atomize(text, 0, len(text), separators)
	sizes := make([]int, len(atoms))
	for i, a := range atoms {
		sizes[i] = utf8.RuneCountInString(text[a.start:a.end])
	}

	var out []span
	first := 0
	for {
		total := 0
		last := first
		for last < len(atoms) && total+sizes[last] <= s.ChunkSize {
			total += sizes[last]
			last++
		}
		// last is exclusive here; atoms never exceed ChunkSize so last > first.
		out = append(out, span{start: atoms[first].start, end: atoms[last-1].end})
		if last == len(atoms) {
			return out
		}

		next := last
		tail := 0
		for k := last - 1; k > first; k-- {
			if tail+sizes[k] > s.Overlap || tail+sizes[k]+sizes[last] > s.ChunkSize {
				break
			}
			tail += sizes[k]
			next = k
		}
		first = next
	}
}

// atomize breaks text[start:end] into contiguous pieces no longer than
// ChunkSize runes, preferring the coarsest separator present.
func (s *Splitter) atomize(text string, start, end int, seps []string) []span {
	if utf8.RuneCountInString(text[start:end]) <= s.ChunkSize {
		return []span{{start: start, end: end}}
	}

	segment := text[start:end]
	for i, sep := range seps {
		if sep == "" {
			return s.hardSplit(text, start, end)
		}
		if !strings.Contains(segment, sep) {
			continue
		}
		var out []span
		offset := start
		for _, piece := range strings.SplitAfter(segment, sep) {
			if piece == "" {
				continue
			}
			out = append(out, s.atomize(text, offset, offset+len(piece), seps[i+1:])...)
			offset += len(piece)
		}
		return out
	}
	return s.hardSplit(text, start, end)
}

// hardSplit cuts at fixed rune counts small enough that a tail piece can be
// carried into the next passage.
func (s *Splitter) hardSplit(text string, start, end int) []span {
	step := s.ChunkSize
	if s.Overlap > 0 {
		step = min(s.Overlap, s.ChunkSize-s.Overlap)
	}

	var out []span
	pieceStart := start
	count := 0
	for i := range text[start:end] {
		if count == step {
			out = append(out, span{start: pieceStart, end: start + i})
			pieceStart = start + i
			count = 0
		}
		count++
	}
	out = append(out, span{start: pieceStart, end: end})
	return out
}
