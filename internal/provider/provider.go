// Package provider supplies target texts for runs.
package provider

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/generator"
	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
)

// ErrEmptyText is returned when a provider produced no usable text.
var ErrEmptyText = errors.New("empty target text")

const (
	// FallbackText is used for word modes when no provider answers.
	FallbackText = "the quick brown fox jumps over the lazy dog and runs through the forest with great speed and agility"
	// FallbackCode is used for code mode when no provider answers.
	FallbackCode = "public class FastFingers {\n  public static void main(String[] args) {\n    System.out.println(\"Server Offline\");\n  }\n}"
)

// Provider returns a target text of roughly length words for mode. Code mode
// ignores length.
type Provider interface {
	FetchTarget(ctx context.Context, mode model.Mode, length int) (string, error)
}

//go:embed snippets/*
var snippetFS embed.FS

// Snippets returns the embedded code snippets sorted by file name.
func Snippets() []string {
	entries, err := fs.ReadDir(snippetFS, "snippets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		data, err := snippetFS.ReadFile("snippets/" + name)
		if err != nil {
			continue
		}
		out = append(out, normalizeCode(string(data)))
	}
	return out
}

// normalizeCode expands tabs and trims trailing whitespace so every line
// break is followed only by spaces.
func normalizeCode(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.ReplaceAll(line, "\t", "  "), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Local generates texts in-process from a word list and embedded snippets.
type Local struct {
	gen      *generator.Generator
	words    []string
	opts     generator.Options
	snippets []string
}

// NewLocal builds a local provider. opts.Count is overridden per request.
func NewLocal(gen *generator.Generator, words []string, opts generator.Options) *Local {
	return &Local{gen: gen, words: words, opts: opts, snippets: Snippets()}
}

// FetchTarget implements Provider.
func (l *Local) FetchTarget(ctx context.Context, mode model.Mode, length int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	if mode == model.ModeCode {
		text = l.gen.Pick(l.snippets)
	} else {
		opts := l.opts
		opts.Count = length
		text = l.gen.Text(l.words, opts)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Fallback returns the built-in text for mode.
func Fallback(mode model.Mode) string {
	if mode == model.ModeCode {
		return FallbackCode
	}
	return FallbackText
}

// Fetch asks p for a target and substitutes the built-in fallback on any
// failure. It never returns an empty string.
func Fetch(ctx context.Context, p Provider, mode model.Mode, length int, log *zap.Logger) string {
	log = logging.OrNop(log)
	if p == nil {
		return Fallback(mode)
	}
	text, err := p.FetchTarget(ctx, mode, length)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyText
	}
	if err != nil {
		log.Warn("text provider failed, using fallback text",
			zap.String("mode", string(mode)),
			zap.Int("length", length),
			zap.Error(err))
		return Fallback(mode)
	}
	if mode == model.ModeCode {
		return normalizeCode(text)
	}
	return text
}

// Chain tries each provider in order and returns the first non-empty text.
type Chain []Provider

// FetchTarget implements Provider.
func (c Chain) FetchTarget(ctx context.Context, mode model.Mode, length int) (string, error) {
	var errs []error
	for _, p := range c {
		text, err := p.FetchTarget(ctx, mode, length)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if err == nil {
			err = ErrEmptyText
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", ErrEmptyText
	}
	return "", errors.Join(errs...)
}
