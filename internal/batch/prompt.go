package batch

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = `You are a Telugu-English screenplay writer for Instagram reels.
Write short (20-30s) Gen-Z scripts that mix Telugu and English naturally.
Respond with JSON only.`

// buildPrompt renders the user prompt for one batch request.
func buildPrompt(topic, genre string, sel Selection, n int) string {
	var b strings.Builder
	b.WriteString("Generate a short reel script based strictly on the TOPIC and GENRE.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("1. Use at most one dialogue from the DATASET, and only if it fits naturally.\n")
	b.WriteString("2. The HOOK must grab attention in the first 5 seconds (relatable, funny, emotional or shocking depending on GENRE).\n")
	b.WriteString("3. CONTEXT develops the situation. PUNCHLINE lands hard. CAPTION is short, Gen-Z, Telugu-English mix with hashtags.\n")
	b.WriteString("4. If a PUNCHLINE SUGGESTION is given, prefer it as the punchline.\n")
	b.WriteString("5. Set usedDataset to true only when a DATASET item appears verbatim in the script.\n\n")

	fmt.Fprintf(&b, "GENRE: %s\n", genre)
	fmt.Fprintf(&b, "TOPIC: %q\n\n", topic)

	if item, ok := sel.Suggestion(); ok {
		fmt.Fprintf(&b, "PUNCHLINE SUGGESTION (highly relevant to topic): %q\n\n", item.Text)
	}
	if sel.Any() {
		data, err := json.MarshalIndent(sel, "", "  ")
		if err == nil {
			fmt.Fprintf(&b, "DATASET:\n%s\n\n", data)
		}
	}

	b.WriteString(`Return a JSON object in this format:
{"scripts": [{"hook": "...", "context": "...", "punchline": "...", "caption": "...", "usedDataset": true}]}
`)
	fmt.Fprintf(&b, "\nGenerate exactly %d different variations for the topic %q with genre %q.\n", n, topic, genre)
	return b.String()
}
