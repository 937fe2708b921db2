// Package chunker splits raw document text into overlapping, size-bounded
// chunks that can be embedded independently for retrieval.
//
// Splitting runs in passes, each applied only to the units the previous pass
// left oversized: blank-line paragraphs, single newlines, sentences packed
// greedily, and finally a forced split for a single sentence that still does
// not fit. Small units are then merged forward. After indexes are assigned,
// every chunk but the first is prefixed with the last sentence of its
// predecessor.
package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultMaxChars = 2000
	DefaultMinChars = 400
)

// Chunk is one retrieval-ready slice of a document.
type Chunk struct {
	Content     string            `json:"content"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	Overlap     string            `json:"overlap,omitempty"` // sentence prepended from the previous chunk
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Body returns the chunk content without the prepended overlap sentence.
func (c Chunk) Body() string {
	if c.Overlap == "" {
		return c.Content
	}
	return strings.TrimPrefix(c.Content, c.Overlap+" ")
}

var (
	paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)
	sentenceEnd    = regexp.MustCompile(`[^.!?]+[.!?]+`)
)

// Chunker holds the size limits. It has no other state and is safe for
// concurrent use.
type Chunker struct {
	maxChars int
	minChars int
}

// New creates a Chunker. Non-positive limits fall back to the defaults and
// minChars is clamped to maxChars.
func New(maxChars, minChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	if minChars > maxChars {
		minChars = maxChars
	}
	return &Chunker{maxChars: maxChars, minChars: minChars}
}

// Split is shorthand for New(maxChars, minChars).Chunk(text).
func Split(text string, maxChars, minChars int) []Chunk {
	return New(maxChars, minChars).Chunk(text)
}

// MaxChars returns the configured upper bound.
func (c *Chunker) MaxChars() int { return c.maxChars }

// MinChars returns the configured merge target.
func (c *Chunker) MinChars() int { return c.minChars }

// Chunk splits text into ordered chunks. It is total and deterministic: the
// empty string yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	if text == "" {
		return nil
	}

	units := splitParagraphs(text)
	units = c.refine(units, splitLines)
	units = c.refine(units, c.packSentences)
	units = c.refine(units, c.forceSplit)
	units = c.merge(units)

	if len(units) == 0 {
		units = []string{text}
	}

	chunks := make([]Chunk, len(units))
	for i, body := range units {
		chunks[i] = Chunk{
			Content:     body,
			ChunkIndex:  i,
			TotalChunks: len(units),
			Metadata:    map[string]string{"char_count": strconv.Itoa(runeLen(body))},
		}
	}

	for i := 1; i < len(chunks); i++ {
		overlap := LastSentence(units[i-1])
		if overlap == "" {
			continue
		}
		chunks[i].Overlap = overlap
		chunks[i].Content = overlap + " " + units[i]
	}

	return chunks
}

// refine applies split to every unit longer than maxChars and keeps the rest.
func (c *Chunker) refine(units []string, split func(string) []string) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		if runeLen(u) <= c.maxChars {
			out = append(out, u)
			continue
		}
		out = append(out, split(u)...)
	}
	return out
}

func splitParagraphs(text string) []string {
	return nonEmpty(paragraphBreak.Split(text, -1))
}

func splitLines(unit string) []string {
	return nonEmpty(strings.Split(unit, "\n"))
}

// packSentences greedily fills a buffer with sentences, flushing before the
// sentence that would push it past maxChars.
func (c *Chunker) packSentences(unit string) []string {
	var out []string
	cur := ""
	for _, s := range Sentences(unit) {
		switch {
		case cur == "":
			cur = s
		case runeLen(cur)+1+runeLen(s) > c.maxChars:
			out = append(out, cur)
			cur = s
		default:
			cur += " " + s
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// forceSplit cuts a unit with no usable sentence boundary at the last
// whitespace before maxChars, or hard at maxChars when there is none.
func (c *Chunker) forceSplit(unit string) []string {
	var out []string
	rest := []rune(unit)
	for len(rest) > c.maxChars {
		cut := -1
		for i := c.maxChars; i > 0; i-- {
			if unicode.IsSpace(rest[i]) {
				cut = i
				break
			}
		}
		var piece string
		if cut > 0 {
			piece = string(rest[:cut])
			rest = rest[cut+1:]
		} else {
			piece = string(rest[:c.maxChars])
			rest = rest[c.maxChars:]
		}
		if p := strings.TrimSpace(piece); p != "" {
			out = append(out, p)
		}
		rest = []rune(strings.TrimLeftFunc(string(rest), unicode.IsSpace))
	}
	if tail := strings.TrimSpace(string(rest)); tail != "" {
		out = append(out, tail)
	}
	return out
}

// merge folds units shorter than minChars into the following unit. A merge
// that would exceed maxChars is skipped, and a short tail is folded back into
// the previous chunk when it fits.
func (c *Chunker) merge(units []string) []string {
	var out []string
	buf := ""
	for _, u := range units {
		switch {
		case buf == "":
			buf = u
		case runeLen(buf) < c.minChars && runeLen(buf)+2+runeLen(u) <= c.maxChars:
			buf += "\n\n" + u
		default:
			out = append(out, buf)
			buf = u
		}
	}
	if buf == "" {
		return out
	}
	if runeLen(buf) < c.minChars && len(out) > 0 {
		last := out[len(out)-1]
		if runeLen(last)+2+runeLen(buf) <= c.maxChars {
			out[len(out)-1] = last + "\n\n" + buf
			return out
		}
	}
	return append(out, buf)
}

// Sentences splits text on '.', '!' and '?' terminators. Text between
// terminators is never dropped: a trailing fragment without punctuation is
// returned as the final sentence.
func Sentences(text string) []string {
	var out []string
	prev := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[prev:loc[1]]); s != "" {
			out = append(out, s)
		}
		prev = loc[1]
	}
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// LastSentence returns the final sentence of text, or "" if it has none.
func LastSentence(text string) string {
	s := Sentences(text)
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func nonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
