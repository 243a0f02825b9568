package scan

import "strings"

// Normalize cleans raw scanner, camera or pasted input into canonical
// candidate codes. Codes are case-insensitive so everything is upper-cased,
// and comma separators left over from pastes or repeated-scan concatenation
// are stripped.
//
// When width > 0 the cleaned string is split into consecutive fixed-width
// chunks; a trailing partial chunk is returned as pending and must be held
// back by the caller until more characters arrive. When width == 0 the whole
// cleaned string is the single candidate.
func Normalize(raw string, width int) (ready []string, pending string) {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")

	if cleaned == "" {
		return nil, ""
	}

	if width <= 0 {
		return []string{cleaned}, ""
	}

	for len(cleaned) >= width {
		ready = append(ready, cleaned[:width])
		cleaned = cleaned[width:]
	}
	return ready, cleaned
}
