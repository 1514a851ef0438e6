package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Slot names recognized in a prompt template.
const (
	SlotContext     = "context"
	SlotChatHistory = "chat_history"
	SlotQuestion    = "question"
)

// ErrMissingSlot is returned when a template lacks a required placeholder or
// a render call does not supply a value for one.
var ErrMissingSlot = errors.New("missing template slot")

var requiredSlots = []string{SlotContext, SlotChatHistory, SlotQuestion}

// Template is a prompt with named {slot} placeholders.
type Template struct {
	text string
}

// NewTemplate checks that text carries every required placeholder.
func NewTemplate(text string) (*Template, error) {
	for _, slot := range requiredSlots {
		if !strings.Contains(text, placeholder(slot)) {
			return nil, fmt.Errorf("%w: template has no %s", ErrMissingSlot, placeholder(slot))
		}
	}
	return &Template{text: text}, nil
}

// Render substitutes every slot in a single pass, so braces inside the
// supplied values are never expanded. Braces that name no slot are left as is.
func (t *Template) Render(values map[string]string) (string, error) {
	pairs := make([]string, 0, 2*len(requiredSlots))
	for _, slot := range requiredSlots {
		v, ok := values[slot]
		if !ok {
			return "", fmt.Errorf("%w: no value for %s", ErrMissingSlot, placeholder(slot))
		}
		pairs = append(pairs, placeholder(slot), v)
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}

// String returns the raw template text.
func (t *Template) String() string { return t.text }

func placeholder(slot string) string { return "{" + slot + "}" }
