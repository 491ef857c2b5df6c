package host

import (
	"fmt"
	"strings"
)

const defaultSourceName = "Local News"

// systemPrompt renders the personality brief plus broadcast guidelines.
// The region line is only added when regionName is set.
func systemPrompt(p Personality, regionName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s for a local news broadcast.\n", p.DisplayName)
	fmt.Fprintf(&b, "Style: %s\n", p.Style)
	fmt.Fprintf(&b, "Tone: %s\n\n", p.Tone)
	b.WriteString(p.Instructions)
	b.WriteString("\n\nImportant guidelines:\n")
	b.WriteString("1. Rewrite the news content in your unique style\n")
	b.WriteString("2. Keep all factual information accurate\n")
	b.WriteString("3. Maintain appropriate length (30-60 seconds when read aloud)\n")
	b.WriteString("4. Make it engaging for radio/podcast listeners\n")
	b.WriteString("5. Include the source attribution naturally\n")
	if regionName != "" {
		fmt.Fprintf(&b, "6. Add local relevance for %s when appropriate\n", regionName)
	}
	return b.String()
}

func userPrompt(title, source, text string) string {
	if strings.TrimSpace(source) == "" {
		source = defaultSourceName
	}
	return fmt.Sprintf(`Please rewrite this news article for your broadcast:

Title: %s
Source: %s

Content:
%s

Remember to:
- Start with an attention-grabbing introduction
- Present the key facts clearly
- Include source attribution
- End with a natural transition or closing
`, title, source, text)
}
