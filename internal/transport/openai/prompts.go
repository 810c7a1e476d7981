package openai

import (
	"fmt"
	"strings"
)

const captionPrompt = `Describe this jewelry item in one concise line. Mention:
1. Color (silver, gold, rose gold, or any other visible color).
2. Type (ring, pendant, earrings, bracelet, necklace, charm).
3. Material when obvious (metal, pearl, diamond, gemstone).
4. Main shape or design (heart-shaped, floral, cross, initial).
5. Any text engraved or written on it, quoted exactly (for example: engraved with "MAMA"). Say nothing about text if there is none.
6. Prominent secondary features (for example: with a central diamond, set with blue stones).
Describe only the item, not the background, and do not use the word "jewelry".`

const extractionPrompt = `From the jewelry caption below, build a JSON object with exactly these keys:

- "jewelry_type": one of Rings, Earrings, Pendants, Bracelets, Necklaces, Charms. Use Pendants when unclear.
- "material": the main metal or material, e.g. "Sterling Silver", "Yellow Gold", "Rose Gold", "White Gold", "Pearl". Use "Sterling Silver" when only silver or metal is mentioned and "Yellow Gold" when only gold is mentioned.
- "design": the main shape or theme in 1-2 lowercase words: "heart", "floral", "cross", "initial p" for a single letter, the engraved text itself (lowercase) when there is one, or "abstract" when unclear.
- "categories": up to 3 lowercase tags for key features, starting with the main design, plus elements such as "diamond", "pearl", "engraved", "gemstone" when mentioned.

Answer with the JSON object only, no prose and no markdown.

Caption: %q`

const keywordPrompt = `Jewelry caption:
%q

Keywords already used for searching:
[%s]

Name exactly one additional specific feature from the caption that is not in the list above and is not a filler word. Prefer stone types (sapphire, emerald, ruby), surface patterns (filigree, hammered) or other distinct visual elements.

Answer with that single lowercase keyword only, or an empty line when there is no suitable keyword.`

func buildExtractionPrompt(caption string) string {
	return fmt.Sprintf(extractionPrompt, caption)
}

func buildKeywordPrompt(caption string, excluded []string) string {
	return fmt.Sprintf(keywordPrompt, caption, strings.Join(excluded, ", "))
}
