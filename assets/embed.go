// assets/embed.go
//
// Static resources compiled into the binary.
//   - radicals.txt: kanji → radical components (kradfile style).
//   - kanji.txt:    candidate first kanji for compound puzzles.

package assets

import (
	"bufio"
	"embed"
	"io"
	"strings"
)

//go:embed radicals.txt kanji.txt
var FS embed.FS

// Radicals opens the embedded radical mapping. The caller closes it.
func Radicals() (io.ReadCloser, error) {
	return FS.Open("radicals.txt")
}

// KanjiList returns the embedded candidate kanji, one rune per entry.
func KanjiList() ([]rune, error) {
	f, err := FS.Open("kanji.txt")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKanji(f)
}

// ReadKanji parses one kanji per line, skipping blanks, comments and duplicates.
func ReadKanji(r io.Reader) ([]rune, error) {
	seen := make(map[rune]struct{})
	var out []rune
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		k := []rune(s)[0]
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, sc.Err()
}
