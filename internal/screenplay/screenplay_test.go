package screenplay

import (
	"strings"
	"testing"
	"time"

	"github.com/rcliao/reelscript/internal/model"
)

func TestFormatSections(t *testing.T) {
	out := Format(model.GeneratedScript{Hook: "H", Context: "C", Punchline: "P", Caption: "Cap #x"})

	for _, marker := range []string{"HOOK:", "CONTEXT:", "PUNCHLINE:", "FADE IN:", "FADE OUT.", "SCENE: INT. SOCIAL MEDIA REEL - DAY"} {
		if !strings.Contains(out, marker) {
			t.Errorf("missing %q in:\n%s", marker, out)
		}
	}
	if !strings.HasPrefix(out, "TITLE: Cap\n") {
		t.Errorf("unexpected title line in:\n%s", out)
	}
	if !strings.Contains(out, "CAPTION (Social Media):\nCap #x\n") {
		t.Errorf("caption not kept verbatim:\n%s", out)
	}
}

func TestFormatExact(t *testing.T) {
	want := "TITLE: Exam results\n\n" +
		"FADE IN:\n\n" +
		"SCENE: INT. SOCIAL MEDIA REEL - DAY\n\n" +
		"HOOK:\nBRAHMI\n\"Idhi em ra babu\"\n\n" +
		"CONTEXT:\nResults day\n\n" +
		"PUNCHLINE:\nPass!\n\n" +
		"CAPTION (Social Media):\nExam results @friend\n#Telugu\n\n" +
		"FADE OUT."
	got := Format(model.GeneratedScript{
		Hook:      `"Idhi em ra babu" - BRAHMI`,
		Context:   "Results day",
		Punchline: "Pass!",
		Caption:   "Exam results @friend\n#Telugu",
	})
	if got != want {
		t.Errorf("Format mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		caption string
		want    string
	}{
		{"Cap #x", "Cap"},
		{"Monsoon mood - Telugu style! 😂💯\n#Monsoon #TeluguReels", "Monsoon mood - Telugu style! 😂💯"},
		{"#only #tags", DefaultTitle},
		{"", DefaultTitle},
		{"  spaced @someone  ", "spaced"},
	}
	for _, tt := range tests {
		if got := Title(tt.caption); got != tt.want {
			t.Errorf("Title(%q) = %q, want %q", tt.caption, got, tt.want)
		}
	}
}

func TestFormatDialogue(t *testing.T) {
	if got := formatDialogue("plain - text"); got != "plain - text" {
		t.Errorf("no quotes: %q", got)
	}
	if got := formatDialogue(`"quoted-only"`); got != `"quoted-only"` {
		t.Errorf("no separator: %q", got)
	}
}

func TestFileName(t *testing.T) {
	got := FileName("Exam Results!", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	if got != "telugu-reel-exam_results_-2024-05-01.celtx" {
		t.Errorf("FileName = %q", got)
	}
}
