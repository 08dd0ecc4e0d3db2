package image

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// buildRenderPrompt describes the single studio rendering the pipeline wants
// back for a valuation record.
func buildRenderPrompt(itemName string) string {
	subject := strings.TrimSpace(itemName)
	if subject == "" {
		subject = "the item shown in the photos"
	} else {
		subject = titleCaser.String(subject)
	}
	return fmt.Sprintf(
		"Generate exactly one photorealistic studio photograph of %s, "+
			"reconstructed from the attached reference photos. "+
			"Neutral light-gray background, soft even lighting, centered composition, "+
			"no text, no watermark, no props.", subject)
}
