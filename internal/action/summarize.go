// Package action maps tagged browser actions to the short labels used on
// graph edges.
package action

import (
	"fmt"

	"github.com/suykerbuyk/tracegraph/internal/trace"
)

// Summarize renders an action as a short stable label. Labels are compared
// by string for edge deduplication, so the mapping must stay byte-exact:
// coordinates, delays and scroll distances are deliberately dropped, or
// every click and scroll tick would produce a unique edge.
//
// A nil action yields "?". Unknown tags echo the tag name verbatim.
func Summarize(a *trace.Action) string {
	if a == nil {
		return "?"
	}
	switch a.Tag {
	case trace.TagBack:
		return "Back"
	case trace.TagClick:
		if a.Content != "" {
			return fmt.Sprintf("Click(%s:%s)", a.Name, a.Content)
		}
		return fmt.Sprintf("Click(%s)", a.Name)
	case trace.TagTypeText:
		return fmt.Sprintf(`Type("%s")`, a.Text)
	case trace.TagPressKey:
		return fmt.Sprintf("Key(%d)", a.Code)
	case trace.TagScrollUp:
		return "ScrollUp"
	case trace.TagScrollDown:
		return "ScrollDown"
	case trace.TagReload:
		return "Reload"
	default:
		return a.Tag
	}
}
