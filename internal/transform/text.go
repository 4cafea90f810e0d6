package transform

import (
	"fmt"
	"strings"

	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/slots"
)

// ToText renders doc as plain text: a header, every slot with its state, and
// the score line.
func ToText(doc document.Document, res score.Result) string {
	var b strings.Builder
	name := projectName(doc)
	b.WriteString(name + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(name))) + "\n\n")

	for _, sec := range slots.Sections() {
		fmt.Fprintf(&b, "[%s]\n", sec.Name)
		for _, slot := range sec.Slots {
			v, _ := doc.Get(slot.Path())
			state := slots.Classify(v)
			value := "-"
			if state != slots.Missing {
				value = strings.TrimSpace(doc.GetString(slot.Path()))
			}
			fmt.Fprintf(&b, "  %-16s %s (%s)\n", slot.Key+":", value, state)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Score: %d%% (%d/%d slots, %s)\n", res.TotalScore, completeSlots(res), res.TotalSlots, res.Confidence)
	return b.String()
}
