// internal/kana/kana.go
//
// Character classification and kana normalization for the word games.
// Responsibilities:
//   - Classify runes into hiragana / katakana / kanji / other by Unicode block.
//   - Fold katakana to hiragana and small kana to full size.
//   - Extract the first / last kana of a reading (ー is never a last kana).
//   - Provide the canonical comparison form used by every game rule.
//
// All functions are pure and safe for concurrent use.

package kana

import (
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Category is the script class of a single rune.
type Category int

const (
	Other Category = iota
	Hiragana
	Katakana
	Kanji
)

// String returns a lowercase name for logs.
func (c Category) String() string {
	switch c {
	case Hiragana:
		return "hiragana"
	case Katakana:
		return "katakana"
	case Kanji:
		return "kanji"
	default:
		return "other"
	}
}

const (
	// LongVowelMark is the katakana elongation mark.
	LongVowelMark = 'ー'
	// Terminal is the moraic nasal; a chain word ending in it loses.
	Terminal = 'ん'

	// katakanaOffset is the distance between the katakana and hiragana blocks.
	katakanaOffset = 0x60
)

// smallToFull maps small kana (both scripts) to their full-size forms.
var smallToFull = map[rune]rune{
	'ぁ': 'あ', 'ぃ': 'い', 'ぅ': 'う', 'ぇ': 'え', 'ぉ': 'お',
	'ゃ': 'や', 'ゅ': 'ゆ', 'ょ': 'よ',
	'っ': 'つ', 'ゎ': 'わ', 'ゕ': 'か', 'ゖ': 'け',
	'ァ': 'ア', 'ィ': 'イ', 'ゥ': 'ウ', 'ェ': 'エ', 'ォ': 'オ',
	'ャ': 'ヤ', 'ュ': 'ユ', 'ョ': 'ヨ',
	'ッ': 'ツ', 'ヮ': 'ワ', 'ヵ': 'カ', 'ヶ': 'ケ',
}

// Classify reports the script category of r.
func Classify(r rune) Category {
	switch {
	case r >= 0x3040 && r <= 0x309F:
		return Hiragana
	case r >= 0x30A0 && r <= 0x30FF:
		return Katakana
	case r >= 0x4E00 && r <= 0x9FFF:
		return Kanji
	default:
		return Other
	}
}

// IsKana reports whether r is a hiragana or katakana letter. Marks such as
// ー, ・ and the voicing marks are not letters.
func IsKana(r rune) bool {
	return (r >= 0x3041 && r <= 0x3096) || (r >= 0x30A1 && r <= 0x30FA)
}

// IsHalfWidthKatakana reports whether r is in the half-width katakana range.
func IsHalfWidthKatakana(r rune) bool {
	return r >= 0xFF65 && r <= 0xFF9F
}

// IsJapanese reports whether r counts as Japanese text, including half-width katakana.
func IsJapanese(r rune) bool {
	return Classify(r) != Other || IsHalfWidthKatakana(r)
}

// ToHiragana folds katakana letters to hiragana. ー and other runes,
// including katakana without a hiragana counterpart (ヷ..ヺ), are unchanged.
func ToHiragana(s string) string {
	out := make([]rune, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, toHiraganaRune(r))
	}
	return string(out)
}

func toHiraganaRune(r rune) rune {
	if (r >= 0x30A1 && r <= 0x30F6) || r == 0x30FD || r == 0x30FE {
		return r - katakanaOffset
	}
	return r
}

// ToFullSize maps a small kana to its full-size form.
func ToFullSize(r rune) rune {
	if f, ok := smallToFull[r]; ok {
		return f
	}
	return r
}

// FirstKana returns the first kana of s in full size, or 0 if s has none.
func FirstKana(s string) rune {
	for _, r := range s {
		if IsKana(r) {
			return ToFullSize(r)
		}
	}
	return 0
}

// LastKana returns the last kana of s in full size, skipping ー, or 0 if none.
func LastKana(s string) rune {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		if r == LongVowelMark {
			continue
		}
		if IsKana(r) {
			return ToFullSize(r)
		}
	}
	return 0
}

// Normalize returns the comparison form of a kana: hiragana, full size.
func Normalize(r rune) rune {
	return ToFullSize(toHiraganaRune(r))
}

// Equal compares two kana in normalized form.
func Equal(a, b rune) bool {
	return Normalize(a) == Normalize(b)
}

// IsTerminal reports whether r normalizes to ん.
func IsTerminal(r rune) bool {
	return Normalize(r) == Terminal
}

// ContainsJapanese reports whether s has any hiragana, katakana or kanji rune.
func ContainsJapanese(s string) bool {
	for _, r := range s {
		if Classify(r) != Other {
			return true
		}
	}
	return false
}

// ContainsKanji reports whether s has at least one kanji.
func ContainsKanji(s string) bool {
	for _, r := range s {
		if Classify(r) == Kanji {
			return true
		}
	}
	return false
}

// IsKanjiOnly reports whether s is non-empty and made of kanji only.
func IsKanjiOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if Classify(r) != Kanji {
			return false
		}
	}
	return true
}

// JapaneseRatio is the share of non-space runes in s that count as Japanese.
func JapaneseRatio(s string) float64 {
	var total, jp int
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '　' {
			continue
		}
		total++
		if IsJapanese(r) {
			jp++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(jp) / float64(total)
}

// FoldWidth folds half-width katakana (and full-width ASCII) to canonical width,
// so ｶｻ is treated the same as カサ.
func FoldWidth(s string) string {
	return width.Fold.String(s)
}
