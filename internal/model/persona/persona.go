package persona

// DefaultID is the persona used when a session does not name one.
const DefaultID = "cowalsky"

// Persona captures the character attributes exposed to the frontend and the
// flavour lists used to decorate its replies.
type Persona struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Title         string   `json:"title" yaml:"title"`
	Tagline       string   `json:"tagline,omitempty" yaml:"tagline"`
	AvatarURL     string   `json:"avatarUrl,omitempty" yaml:"avatar_url"`
	AvatarCaption string   `json:"avatarCaption,omitempty" yaml:"avatar_caption"`
	Credits       string   `json:"credits,omitempty" yaml:"credits"`
	SystemPrompt  string   `json:"-" yaml:"system_prompt"`
	VisionPrompt  string   `json:"-" yaml:"vision_prompt"`
	VoiceID       string   `json:"voiceId,omitempty" yaml:"voice_id"`
	Endings       []string `json:"endings,omitempty" yaml:"endings"`
	Roasts        []string `json:"roasts,omitempty" yaml:"roasts"`
}

// PenguinEndings are the sign-offs appended in penguin talk mode.
var PenguinEndings = []string{"brrr!", "flap-flap!", "slide safe!", "cool as ice!", "stay frosty!"}

// SigmaRoasts are the one-liners appended in sigma mode.
var SigmaRoasts = []string{
	"Bro, even my fish have better questions.",
	"That take was so cold even Antarctica blushed.",
	"You’re trying… I’ll give you that. Barely.",
	"I ran your question through my logic circuits — still nonsense.",
	"Kowalski, analysis: user might be running low on IQ points.",
	"You’re like a penguin trying to fly — admirable, yet hopeless.",
}

// DefaultVisionPrompt is the instruction sent along with uploaded images.
const DefaultVisionPrompt = "Describe this image like a penguin detective."

// Seed provides the built-in personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:            DefaultID,
			Name:          "Cowalsky",
			Title:         "Cowalsky (Gen-2)",
			Tagline:       "AI Intelligence with Ice-Cold Precision ❄️",
			AvatarURL:     "https://static.wikia.nocookie.net/madagascar/images/0/02/Kowalski.png/revision/latest?cb=20220318225149",
			AvatarCaption: "Kowalski — The Brains Behind the Ice 🧊",
			Credits:       "Made by Parth, Arnav, Aarav.",
			SystemPrompt:  "You are Cowalsky, the analytical penguin. Answer clearly and precisely, with a dry sense of humour.",
			VisionPrompt:  DefaultVisionPrompt,
			VoiceID:       "alloy",
			Endings:       append([]string(nil), PenguinEndings...),
			Roasts:        append([]string(nil), SigmaRoasts...),
		},
		{
			ID:            "skipper",
			Name:          "Skipper",
			Title:         "Skipper (Field Command)",
			Tagline:       "Smile and wave, boys. Smile and wave.",
			AvatarCaption: "Skipper — Mission Control on Ice",
			Credits:       "Made by Parth, Arnav, Aarav.",
			SystemPrompt:  "You are Skipper, the penguin team leader. Answer like a mission briefing: short, decisive, confident.",
			VisionPrompt:  "Inspect this image like a penguin commander surveying enemy territory.",
			VoiceID:       "onyx",
			Endings:       []string{"move out!", "smile and wave!", "mission complete!", "over and out!"},
			Roasts:        append([]string(nil), SigmaRoasts...),
		},
	}
}

// withDefaults fills the flavour lists and prompts left empty in a catalog entry.
func withDefaults(p Persona) Persona {
	if p.VisionPrompt == "" {
		p.VisionPrompt = DefaultVisionPrompt
	}
	if len(p.Endings) == 0 {
		p.Endings = append([]string(nil), PenguinEndings...)
	}
	if len(p.Roasts) == 0 {
		p.Roasts = append([]string(nil), SigmaRoasts...)
	}
	if p.Title == "" {
		p.Title = p.Name
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = "You are " + p.Name + ", a penguin with opinions. Keep answers short."
	}
	return p
}
