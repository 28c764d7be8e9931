// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLanguageFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"movie.en.srt", "en"},
		{"/media/show/S01E01.de.srt", "de"},
		{"movie.pt_BR.srt", "pt-BR"},
		{"movie.pt-BR.srt", "pt-BR"},
		{"movie.srt", ""},
		{"movie.S01E01.srt", ""},
		{"movie.forced.srt", ""},
		{"movie.1080p.srt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, languageFromName(tt.name))
		})
	}
}

func TestLanguageFromText(t *testing.T) {
	assert.Equal(t, "", languageFromText(nil))

	text := strings.Repeat("The quick brown fox jumps over the lazy dog while the children are watching from the window of their house. ", 10)
	lines := []Line{{Text: text, StartMs: 0, EndMs: 1}}
	assert.Equal(t, "en", languageFromText(lines))
}

func TestDetectLanguagePrefersFilename(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog while the children are watching. ", 10)
	assert.Equal(t, "fr", DetectLanguage("film.fr.srt", []Line{{Text: text}}))
}
