package reaction

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLibrary() Library {
	lib := Library{
		Reactions: map[string][]string{
			"funny": {"gif-funny-1", "gif-funny-2"},
			"love":  {"gif-love-1"},
		},
		Triggers: map[string][]string{
			"funny": {"lol", "haha"},
			"love":  {"miss you", "love"},
		},
	}
	lib.Settings.GifChance = DefaultChance
	return lib
}

func TestLoadLibrary_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gifs.yaml")
	body := `
reactions:
  funny: ["abc123", "def456"]
triggers:
  funny: ["lol"]
settings:
  gif_chance: 0.25
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	lib, err := LoadLibrary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123", "def456"}, lib.Reactions["funny"])
	assert.Equal(t, 0.25, lib.Settings.GifChance)
}

func TestLoadLibrary_MissingFile(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, lib.Triggers)
	assert.Equal(t, DefaultChance, lib.Settings.GifChance)

	tr := NewTrigger(lib)
	_, ok := tr.Pick("lol that was funny", 0)
	assert.False(t, ok)
}

func TestPick_NoTriggerNoReaction(t *testing.T) {
	tr := NewTriggerWith(testLibrary(), rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		_, ok := tr.Pick("see you tomorrow then", 1.0)
		assert.False(t, ok)
	}
}

func TestPick_TriggerWithCertainChance(t *testing.T) {
	tr := NewTriggerWith(testLibrary(), rand.New(rand.NewSource(1)))
	gif, ok := tr.Pick("haha good one", 1.0)
	require.True(t, ok)
	assert.Contains(t, []string{"gif-funny-1", "gif-funny-2"}, gif)
}

func TestPick_UnsetChanceUsesLibraryDefault(t *testing.T) {
	lib := testLibrary()
	lib.Settings.GifChance = 1.0
	tr := NewTriggerWith(lib, rand.New(rand.NewSource(1)))
	_, ok := tr.Pick("lol", -1)
	assert.True(t, ok)
}

func TestPick_ZeroChanceDisablesReactions(t *testing.T) {
	lib := testLibrary()
	lib.Settings.GifChance = 1.0
	tr := NewTriggerWith(lib, rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		_, ok := tr.Pick("lol", 0)
		assert.False(t, ok, "an explicit zero must switch reactions off")
	}
}

func TestPick_AtMostOneCategory(t *testing.T) {
	// Reply matches both categories; only the first (sorted) may fire.
	tr := NewTriggerWith(testLibrary(), rand.New(rand.NewSource(7)))
	hits := map[string]bool{}
	for i := 0; i < 200; i++ {
		if gif, ok := tr.Pick("haha i love this", 1.0); ok {
			hits[gif] = true
		}
	}
	assert.True(t, hits["gif-funny-1"] || hits["gif-funny-2"])
	assert.False(t, hits["gif-love-1"], "second category must never fire")
}

func TestPick_ProbabilityRoughlyHonored(t *testing.T) {
	tr := NewTriggerWith(testLibrary(), rand.New(rand.NewSource(99)))
	fired := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if _, ok := tr.Pick("lol", 0.15); ok {
			fired++
		}
	}
	rate := float64(fired) / n
	assert.InDelta(t, 0.15, rate, 0.05)
}

func TestDelay_Range(t *testing.T) {
	tr := NewTriggerWith(testLibrary(), rand.New(rand.NewSource(2)))
	for i := 0; i < 100; i++ {
		d := tr.Delay()
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}
