// Package initials derives short lowercase codes from display names.
package initials

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var pinyinArgs = func() pinyin.Args {
	a := pinyin.NewArgs()
	a.Style = pinyin.FirstLetter
	return a
}()

// Of maps a display name to its initials: the pinyin first letter of each Han
// character and the first letter or digit of every other word. "张三" becomes
// "zs", "Zoë Li" becomes "zl". The result is always lowercase.
func Of(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	inWord := false
	for _, r := range folded {
		switch {
		case unicode.Is(unicode.Han, r):
			inWord = false
			if py := pinyin.SinglePinyin(r, pinyinArgs); len(py) > 0 && py[0] != "" {
				b.WriteString(strings.ToLower(py[0][:1]))
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				b.WriteRune(unicode.ToLower(r))
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return b.String()
}
