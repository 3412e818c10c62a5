// Package compose turns one AI-generated reply into a sequence of
// human-paced message chunks.
package compose

import (
	"math/rand"
	"strings"
	"time"
)

const (
	// keepWholeLen: anything shorter is always sent as a single message.
	keepWholeLen = 30
	// chunkCap is the soft per-chunk length before a break is forced.
	chunkCap = 70
	// minFragment: shorter split leftovers are discarded.
	minFragment = 5
	// maxChunks bounds how many messages one reply becomes.
	maxChunks = 4
	// shortMessageLen: below this, multi-sentence replies are sometimes
	// kept whole anyway, because people do send two short sentences at once.
	shortMessageLen = 120
	keepWholeOdds   = 0.35
)

// casualMarkers are trailing interjections we prefer to break after, so "lol"
// ends a bubble the way it does in real texting.
var casualMarkers = []string{"lol", "lmao", "lmaoo", "haha", "hahaha", "tho", "ngl", "fr", "omg", "idk", "smh"}

// Splitter implements the chunking heuristics. Randomness is injectable.
type Splitter struct {
	rng *rand.Rand
}

// NewSplitter creates a splitter seeded from the wall clock.
func NewSplitter() *Splitter {
	return &Splitter{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSplitterWith creates a splitter with a fixed source.
func NewSplitterWith(rng *rand.Rand) *Splitter {
	return &Splitter{rng: rng}
}

// Split breaks text into 1..maxChunks send-ready fragments. Short replies,
// single sentences that fit a bubble, and (sometimes) short multi-sentence
// replies stay whole; everything else splits at sentence boundaries with a
// preference for breaks after casual markers.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) < keepWholeLen {
		return []string{text}
	}

	sentences := splitSentences(text)
	if len(sentences) == 1 && len(text) <= chunkCap {
		return []string{text}
	}
	if len(sentences) > 1 && len(text) <= shortMessageLen && s.rng.Float64() < keepWholeOdds {
		return []string{text}
	}

	chunks := assemble(sentences)

	// Drop split leftovers too short to stand alone as a message.
	kept := chunks[:0]
	for _, c := range chunks {
		if len(c) >= minFragment {
			kept = append(kept, c)
		}
	}
	chunks = kept
	if len(chunks) == 0 {
		return []string{text}
	}

	for len(chunks) > maxChunks {
		chunks = mergePairs(chunks)
	}
	return chunks
}

// splitSentences cuts on terminal punctuation and newlines, keeping the
// punctuation with its sentence.
func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		boundary := false
		switch r {
		case '.', '!', '?':
			// Don't cut inside "..." runs or before a closing punctuation.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				boundary = true
			}
		case '\n':
			boundary = true
		}
		if boundary {
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// assemble packs sentences into chunks of at most chunkCap characters,
// breaking early after casual markers. Oversized single sentences are
// hard-wrapped at word boundaries.
func assemble(sentences []string) []string {
	var chunks []string
	cur := ""
	flush := func() {
		if cur != "" {
			chunks = append(chunks, cur)
			cur = ""
		}
	}

	for _, sent := range sentences {
		if len(sent) > chunkCap {
			flush()
			chunks = append(chunks, wrapWords(sent, chunkCap)...)
			continue
		}
		switch {
		case cur == "":
			cur = sent
		case len(cur)+1+len(sent) > chunkCap || endsWithCasualMarker(cur):
			flush()
			cur = sent
		default:
			cur += " " + sent
		}
	}
	flush()
	return chunks
}

func endsWithCasualMarker(s string) bool {
	last := strings.ToLower(strings.Trim(lastWord(s), ".!?,"))
	for _, m := range casualMarkers {
		if last == m {
			return true
		}
	}
	return false
}

func lastWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func wrapWords(s string, limit int) []string {
	var out []string
	cur := ""
	for _, w := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) > limit:
			out = append(out, cur)
			cur = w
		default:
			cur += " " + w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

func mergePairs(chunks []string) []string {
	var merged []string
	for i := 0; i < len(chunks); i += 2 {
		if i+1 < len(chunks) {
			merged = append(merged, chunks[i]+" "+chunks[i+1])
		} else {
			merged = append(merged, chunks[i])
		}
	}
	return merged
}
