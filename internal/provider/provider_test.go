package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerace/internal/generator"
	"github.com/verte-zerg/typerace/internal/model"
)

type stubProvider struct {
	text string
	err  error
}

func (s stubProvider) FetchTarget(context.Context, model.Mode, int) (string, error) {
	return s.text, s.err
}

func TestSnippetsAreIndentedWithSpaces(t *testing.T) {
	snippets := Snippets()
	require.NotEmpty(t, snippets)
	for _, s := range snippets {
		require.NotContains(t, s, "\t")
		require.NotContains(t, s, "\r")
		require.Equal(t, strings.TrimSpace(s), s)
		for _, line := range strings.Split(s, "\n") {
			require.Equal(t, strings.TrimRight(line, " "), line)
		}
	}
}

func TestLocalProvider(t *testing.T) {
	p := NewLocal(generator.NewSeeded(1), []string{"go", "fast"}, generator.Options{})
	text, err := p.FetchTarget(context.Background(), model.ModeSolo, 12)
	require.NoError(t, err)
	require.Len(t, strings.Fields(text), 12)

	code, err := p.FetchTarget(context.Background(), model.ModeCode, 0)
	require.NoError(t, err)
	require.Contains(t, code, "\n")

	empty := NewLocal(generator.NewSeeded(1), nil, generator.Options{})
	_, err = empty.FetchTarget(context.Background(), model.ModeSolo, 5)
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestFetchFallsBack(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, FallbackText, Fetch(ctx, stubProvider{err: errors.New("offline")}, model.ModeSolo, 50, nil))
	require.Equal(t, FallbackCode, Fetch(ctx, stubProvider{err: errors.New("offline")}, model.ModeCode, 0, nil))
	require.Equal(t, FallbackText, Fetch(ctx, stubProvider{text: "   "}, model.ModeRace, 50, nil))
	require.Equal(t, FallbackText, Fetch(ctx, nil, model.ModeSolo, 50, nil))
	require.Equal(t, "hello there", Fetch(ctx, stubProvider{text: "hello there"}, model.ModeSolo, 2, nil))
	require.Equal(t, "a {\n  b\n}", Fetch(ctx, stubProvider{text: "a {\r\n\tb\r\n}\n"}, model.ModeCode, 0, nil))
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	text, err := Chain{stubProvider{err: errors.New("down")}, stubProvider{text: "ok"}}.FetchTarget(ctx, model.ModeSolo, 1)
	require.NoError(t, err)
	require.Equal(t, "ok", text)

	_, err = Chain{stubProvider{}, stubProvider{err: errors.New("down")}}.FetchTarget(ctx, model.ModeSolo, 1)
	require.ErrorIs(t, err, ErrEmptyText)
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/text" || r.URL.Query().Get("mode") == "code" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("served " + r.URL.Query().Get("count") + "\n"))
	}))
	defer srv.Close()

	p := NewHTTP(srv.URL+"/", nil)
	text, err := p.FetchTarget(context.Background(), model.ModeSolo, 7)
	require.NoError(t, err)
	require.Equal(t, "served 7", text)

	_, err = p.FetchTarget(context.Background(), model.ModeCode, 0)
	require.Error(t, err)
}

func TestHTTPBase(t *testing.T) {
	require.Equal(t, "http://host:8080", HTTPBase("ws://host:8080/"))
	require.Equal(t, "https://host", HTTPBase("wss://host"))
	require.Equal(t, "http://localhost:9000", HTTPBase("localhost:9000"))
	require.Equal(t, "http://x", HTTPBase("http://x"))
}
