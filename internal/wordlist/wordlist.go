// Package wordlist loads word lists from files.
package wordlist

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// BuiltinLang is the language shipped inside the binary.
const BuiltinLang = "en"

//go:embed data/en.txt
var builtinEnglish string

// LoadWords reads one word per line from the provided file path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()
	return readWords(file)
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}

// Builtin returns the embedded English list.
func Builtin() []string {
	words, err := readWords(strings.NewReader(builtinEnglish))
	if err != nil {
		return nil
	}
	return words
}

// Load reads the list at path and applies the language filter. A missing
// file for the built-in language falls back to the embedded list.
func Load(lang, path string) ([]string, error) {
	words, err := LoadWords(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && strings.EqualFold(lang, BuiltinLang) {
			words = Builtin()
		} else {
			return nil, err
		}
	}
	filter := FilterForLang(lang)
	kept := words[:0:0]
	for _, w := range words {
		if filter(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("word list for %q has no usable words", lang)
	}
	return kept, nil
}

// Languages lists the languages with a word list in dir plus the built-in
// language, sorted.
func Languages(dir string) ([]string, error) {
	seen := map[string]struct{}{BuiltinLang: {}}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read wordlist directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".txt" {
			continue
		}
		if name == "ATTRIBUTION.txt" || name == "LICENSE.txt" || name == "DATA_LICENSE.txt" {
			continue
		}
		seen[strings.TrimSuffix(name, ".txt")] = struct{}{}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs, nil
}
