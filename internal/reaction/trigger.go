// Package reaction decides whether a composed reply earns a GIF reaction,
// based on keyword triggers and a configured probability.
package reaction

import (
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultChance is the Bernoulli probability when the operator hasn't set one.
const DefaultChance = 0.15

// Library is the GIF catalogue: per-category GIPHY ids and the trigger
// phrases that select each category.
type Library struct {
	Reactions map[string][]string `yaml:"reactions"`
	Triggers  map[string][]string `yaml:"triggers"`
	Settings  struct {
		GifChance float64 `yaml:"gif_chance"`
	} `yaml:"settings"`
}

// LoadLibrary reads the YAML catalogue. A missing file yields an empty
// library (reactions simply never fire).
func LoadLibrary(path string) (Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Library{Settings: struct {
				GifChance float64 `yaml:"gif_chance"`
			}{GifChance: DefaultChance}}, nil
		}
		return Library{}, err
	}
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return Library{}, err
	}
	if lib.Settings.GifChance == 0 {
		lib.Settings.GifChance = DefaultChance
	}
	return lib, nil
}

// Trigger evaluates replies against the library.
type Trigger struct {
	lib Library
	rng *rand.Rand
}

// NewTrigger creates a trigger seeded from the wall clock.
func NewTrigger(lib Library) *Trigger {
	return NewTriggerWith(lib, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewTriggerWith creates a trigger with a fixed source.
func NewTriggerWith(lib Library, rng *rand.Rand) *Trigger {
	return &Trigger{lib: lib, rng: rng}
}

// Pick scans reply for trigger phrases. The first matching category (in
// stable name order) gets one Bernoulli trial at chance; on success a random
// GIF id from that category's pool is returned. At most one reaction per
// reply. A negative chance means "not set, use the library's"; zero is an
// explicit off switch and never fires.
func (t *Trigger) Pick(reply string, chance float64) (string, bool) {
	if chance < 0 {
		chance = t.lib.Settings.GifChance
	}
	if chance <= 0 {
		return "", false
	}
	lower := strings.ToLower(reply)

	categories := make([]string, 0, len(t.lib.Triggers))
	for name := range t.lib.Triggers {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	for _, category := range categories {
		if !matchesAny(lower, t.lib.Triggers[category]) {
			continue
		}
		// First match wins, whether or not the trial succeeds.
		if t.rng.Float64() >= chance {
			return "", false
		}
		pool := t.lib.Reactions[category]
		if len(pool) == 0 {
			return "", false
		}
		return pool[t.rng.Intn(len(pool))], true
	}
	return "", false
}

// Delay returns the natural pause before a reaction send, 0.8-2.0s.
func (t *Trigger) Delay() time.Duration {
	return time.Duration((0.8 + t.rng.Float64()*1.2) * float64(time.Second))
}

func matchesAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}
