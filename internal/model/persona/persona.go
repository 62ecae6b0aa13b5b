package persona

// Persona captures the identity the AI emulates during a conversation.
type Persona struct {
	Name               string `json:"name"`
	PersonalityProfile string `json:"personalityProfile"`
	PortraitImage      string `json:"portraitImage,omitempty"` // data:image/... URI
}

// Suggestion is a guided question that helps users describe the person.
type Suggestion struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

// Suggestions returns the prompts shown alongside the personality form.
func Suggestions() []Suggestion {
	return []Suggestion{
		{
			Title:  "Writing Style & Phrasing",
			Prompt: `How did they text? Short & to the point, or long and thoughtful? Did they use lots of emojis and "lol", or have perfect grammar?`,
		},
		{
			Title:  "Emotional Tone",
			Prompt: "Were they generally warm and comforting, or more direct? How did they express empathy or try to cheer you up?",
		},
		{
			Title:  "Topics & Interests",
			Prompt: "What did they love talking about? Old movies, gardening, sports? What was their unique sense of humor like?",
		},
		{
			Title:  "Conversational Habits",
			Prompt: "Did they reply instantly or take their time? Did they prefer short texts, voice notes, or GIFs? Did they ask deep questions?",
		},
		{
			Title:  "Your Unique Relationship",
			Prompt: "Did they have a special nickname for you? What inside jokes or shared memories defined your conversations?",
		},
	}
}
