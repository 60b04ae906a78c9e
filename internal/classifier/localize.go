package classifier

import (
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
)

// Translator returns the text for a localization key, or "" when the key is
// unknown.
type Translator func(key string) string

// Message is a localized title and text for an interaction.
type Message struct {
	Title string
	Text  string
}

// Localize looks up interaction.<FLOW>.<CODE>.<REASON>.{title,text} and
// falls back to interaction.<CODE>.<REASON>.{title,text}. Both keys of a
// pair must resolve. It reports false when neither pair does.
func Localize(t Translator, flow Flow, i interaction.Interaction) (Message, bool) {
	if t == nil {
		return Message{}, false
	}
	if m, ok := lookup(t, "interaction."+flow.String()+".", i); ok {
		return m, true
	}
	return lookup(t, "interaction.", i)
}

func lookup(t Translator, prefix string, i interaction.Interaction) (Message, bool) {
	base := prefix + i.CodeString() + "." + i.ReasonString() + "."
	title, text := t(base+"title"), t(base+"text")
	if title == "" || text == "" {
		return Message{}, false
	}
	return Message{Title: title, Text: text}, true
}
