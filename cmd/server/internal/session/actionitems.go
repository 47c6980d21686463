package session

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// actionItemNamespace scopes action-item UUIDs.
var actionItemNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:meetassist:action-item"))

// NormalizeActionText canonicalizes an action-item phrase for comparison:
// NFKC, case folded, punctuation removed and whitespace collapsed.
func NormalizeActionText(text string) string {
	folded := cases.Fold().String(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			space = b.Len() > 0
		default:
			if space {
				b.WriteByte(' ')
				space = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ActionItemID derives the id of the ordinal-th item with this speaker and
// normalized text. Ordinal 0 is the stable id; later ordinals only occur when
// the same phrase is detected again after earlier items were completed.
func ActionItemID(speaker, normalized string, ordinal int) string {
	name := speaker + "\x00" + normalized + "\x00" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(actionItemNamespace, []byte(name)).String()
}

func itemKey(speaker, normalized string) string {
	return speaker + "\x00" + normalized
}
