// Package screenplay renders a generated script as a plain-text screenplay
// suitable for import into Celtx.
package screenplay

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rcliao/reelscript/internal/model"
)

// DefaultTitle is used when the caption yields no title.
const DefaultTitle = "Untitled Reel"

var fileUnsafe = regexp.MustCompile(`[^a-z0-9]`)

// Title returns the first caption line with everything from the first
// hashtag or mention onward removed.
func Title(caption string) string {
	line, _, _ := strings.Cut(caption, "\n")
	if i := strings.IndexAny(line, "#@"); i >= 0 {
		line = line[:i]
	}
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return DefaultTitle
}

// formatDialogue turns `"line" - Character` into a character cue followed by
// the line. Other text is returned unchanged.
func formatDialogue(text string) string {
	if !strings.Contains(text, `"`) || !strings.Contains(text, "-") {
		return text
	}
	parts := strings.Split(text, " - ")
	if len(parts) < 2 {
		return text
	}
	return strings.TrimSpace(parts[1]) + "\n" + strings.TrimSpace(parts[0])
}

// Format renders s as a single-scene screenplay.
func Format(s model.GeneratedScript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n\n", Title(s.Caption))
	b.WriteString("FADE IN:\n\n")
	b.WriteString("SCENE: INT. SOCIAL MEDIA REEL - DAY\n\n")
	fmt.Fprintf(&b, "HOOK:\n%s\n\n", formatDialogue(s.Hook))
	fmt.Fprintf(&b, "CONTEXT:\n%s\n\n", formatDialogue(s.Context))
	fmt.Fprintf(&b, "PUNCHLINE:\n%s\n\n", formatDialogue(s.Punchline))
	fmt.Fprintf(&b, "CAPTION (Social Media):\n%s\n\n", s.Caption)
	b.WriteString("FADE OUT.")
	return b.String()
}

// FileName returns a download name like telugu-reel-exam_results-2024-05-01.celtx.
func FileName(topic string, at time.Time) string {
	slug := fileUnsafe.ReplaceAllString(strings.ToLower(topic), "_")
	return fmt.Sprintf("telugu-reel-%s-%s.celtx", slug, at.Format("2006-01-02"))
}
