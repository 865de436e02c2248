package parser

import (
	"strings"
)

// decodeText treats form feeds as page breaks, the way pdftotext and most
// plain-text book dumps mark them.
func decodeText(data []byte) sections {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == "" {
		return sections{}
	}
	return sections(strings.Split(text, "\f"))
}
