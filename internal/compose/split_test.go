package compose

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSplitter(seed int64) *Splitter {
	return NewSplitterWith(rand.New(rand.NewSource(seed)))
}

func TestSplit_TinyMessageStaysWhole(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		got := fixedSplitter(seed).Split("ok")
		require.Len(t, got, 1)
		assert.Equal(t, "ok", got[0])
	}
}

func TestSplit_SingleSentenceUnderCapStaysWhole(t *testing.T) {
	msg := "yeah i was thinking the same thing honestly, wild timing"
	require.Less(t, len(msg), chunkCap)
	got := fixedSplitter(1).Split(msg)
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

func TestSplit_LongMessageSplitsAndReconstructs(t *testing.T) {
	// 4 sentences, ~200 chars total, every sentence comfortably over the
	// discard threshold.
	msg := "went to that new ramen place near the station yesterday. " +
		"the broth was honestly some of the best i ever had. " +
		"we should definitely go together next weekend sometime. " +
		"just tell me which day actually works for you."
	require.Greater(t, len(msg), shortMessageLen)

	for seed := int64(0); seed < 20; seed++ {
		chunks := fixedSplitter(seed).Split(msg)
		require.GreaterOrEqual(t, len(chunks), 2, "seed %d", seed)
		require.LessOrEqual(t, len(chunks), maxChunks, "seed %d", seed)
		for _, c := range chunks {
			assert.GreaterOrEqual(t, len(c), minFragment)
		}
		// Concatenation reconstructs the sentence text in order.
		joined := strings.Join(chunks, " ")
		assert.Equal(t, msg, joined, "seed %d", seed)
	}
}

func TestSplit_BreaksAfterCasualMarker(t *testing.T) {
	msg := "nah that was so funny lol. anyway are you still coming to the thing on friday or what? we need a headcount for the table soon."
	chunks := fixedSplitter(3).Split(msg)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "nah that was so funny lol.", chunks[0])
}

func TestSplit_OversizedSentenceHardWraps(t *testing.T) {
	msg := strings.Repeat("word ", 40) // one 200-char "sentence", no punctuation
	chunks := fixedSplitter(5).Split(strings.TrimSpace(msg))
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), chunkCap)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("first one. second!\nthird? fourth")
	assert.Equal(t, []string{"first one.", "second!", "third?", "fourth"}, got)
}

func TestMergePairsBoundsChunkCount(t *testing.T) {
	in := []string{"aaaaa", "bbbbb", "ccccc", "ddddd", "eeeee"}
	out := mergePairs(in)
	assert.Equal(t, []string{"aaaaa bbbbb", "ccccc ddddd", "eeeee"}, out)
}
