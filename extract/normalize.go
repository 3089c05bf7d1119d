package extract

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares one text value for output: NFKC composition, ASCII
// transliteration, then whitespace collapsed to single spaces and trimmed.
// The input is expected to be tag-free element text.
func Normalize(s string) string {
	return strings.Join(strings.Fields(Transliterate(s)), " ")
}

// Transliterate converts non-ASCII characters to their closest ASCII
// equivalents ("café" becomes "cafe", curly quotes become straight quotes).
func Transliterate(s string) string {
	return unidecode.Unidecode(norm.NFKC.String(s))
}
