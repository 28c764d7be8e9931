// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

const detectSampleLines = 200

var langTokenRe = regexp.MustCompile(`^[A-Za-z]{2,3}([-_][A-Za-z0-9]{2,4})?$`)

// DetectLanguage returns a BCP-47 tag for a track. A language token in the
// file name (movie.en.srt, movie.pt_BR.srt) wins over content detection.
// It returns "" when neither source is conclusive.
func DetectLanguage(name string, lines []Line) string {
	if tag := languageFromName(name); tag != "" {
		return tag
	}
	return languageFromText(lines)
}

func languageFromName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return ""
	}
	token := base[idx+1:]
	if !langTokenRe.MatchString(token) {
		return ""
	}
	tag, err := language.Parse(strings.ReplaceAll(token, "_", "-"))
	if err != nil || tag == language.Und {
		return ""
	}
	if _, conf := tag.Base(); conf == language.No {
		return ""
	}
	return tag.String()
}

func languageFromText(lines []Line) string {
	if len(lines) == 0 {
		return ""
	}
	n := len(lines)
	if n > detectSampleLines {
		n = detectSampleLines
	}
	var sb strings.Builder
	for _, l := range lines[:n] {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	info := whatlanggo.Detect(sb.String())
	if !info.IsReliable() {
		return ""
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}
