// Package flavor appends the penguin sign-offs and sigma roasts to replies.
package flavor

import (
	"math/rand/v2"
	"strings"
	"sync"
	"unicode/utf8"
)

// EmptyReply replaces a blank provider reply.
const EmptyReply = "Hmm... looks like my flippers slipped!"

const (
	penguinPrefix = "\n\n– said the penguin, "
	sigmaPrefix   = "\n\n😈 Sigma Mode: "
)

// Selection names how a suffix is chosen from its list.
type Selection string

const (
	// SelectByLength picks options[len(seed) mod len(options)].
	SelectByLength Selection = "length"
	// SelectRandom picks uniformly at random.
	SelectRandom Selection = "random"
)

// ParseSelection maps configuration values onto a Selection, defaulting to
// SelectByLength.
func ParseSelection(raw string) Selection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SelectRandom)) {
		return SelectRandom
	}
	return SelectByLength
}

// Picker chooses one option. seed is the text the choice is keyed on.
type Picker interface {
	Pick(seed string, options []string) string
}

// LengthPicker indexes options by the code point count of seed.
type LengthPicker struct{}

// Pick returns options[len(seed) mod len(options)], or "" for an empty list.
func (LengthPicker) Pick(seed string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[utf8.RuneCountInString(seed)%len(options)]
}

// RandomPicker chooses uniformly and is safe for concurrent use.
type RandomPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPicker returns a RandomPicker. A nil source uses a randomly seeded one.
func NewRandomPicker(src rand.Source) *RandomPicker {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomPicker{rnd: rand.New(src)}
}

// Pick ignores seed and returns a uniformly chosen option.
func (p *RandomPicker) Pick(_ string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	p.mu.Lock()
	idx := p.rnd.IntN(len(options))
	p.mu.Unlock()
	return options[idx]
}

// NewPicker builds the picker for a Selection.
func NewPicker(sel Selection) Picker {
	if sel == SelectRandom {
		return NewRandomPicker(nil)
	}
	return LengthPicker{}
}

// Decorator applies the cosmetic suffixes.
type Decorator struct {
	picker Picker
}

// NewDecorator returns a Decorator. A nil picker falls back to LengthPicker.
func NewDecorator(picker Picker) *Decorator {
	if picker == nil {
		picker = LengthPicker{}
	}
	return &Decorator{picker: picker}
}

// Penguinify signs text off with a penguin ending. Empty text becomes
// EmptyReply regardless of enabled.
func (d *Decorator) Penguinify(text string, endings []string, enabled bool) string {
	if text == "" {
		return EmptyReply
	}
	if !enabled || len(endings) == 0 {
		return text
	}
	return text + penguinPrefix + d.picker.Pick(text, endings)
}

// SigmaRoast appends a roast chosen from the user's prompt.
func (d *Decorator) SigmaRoast(prompt, reply string, roasts []string) string {
	if len(roasts) == 0 {
		return reply
	}
	return reply + sigmaPrefix + d.picker.Pick(prompt, roasts)
}

// Options bundles the toggles and lists for Decorate.
type Options struct {
	PenguinMode bool
	SigmaMode   bool
	Endings     []string
	Roasts      []string
}

// Decorate runs Penguinify and then, in sigma mode, SigmaRoast.
func (d *Decorator) Decorate(prompt, reply string, opts Options) string {
	out := d.Penguinify(reply, opts.Endings, opts.PenguinMode)
	if opts.SigmaMode {
		out = d.SigmaRoast(prompt, out, opts.Roasts)
	}
	return out
}
