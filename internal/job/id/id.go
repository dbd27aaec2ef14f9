// Package id provides identifier generation for split jobs.
package id

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// timeLayout prefixes every ID so jobs sort by upload time.
const timeLayout = "20060102_150405"

// Generate creates a new job ID for an uploaded file.
// Format: <YYYYMMDD_HHMMSS>_<safe-stem>_<8 hex>
// Example: 20240301_141502_interview_3f2a9c1d
func Generate(filename string) string {
	return GenerateAt(time.Now(), filename)
}

// GenerateAt is Generate with an explicit clock.
func GenerateAt(t time.Time, filename string) string {
	stem := SafeName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if stem == "" {
		stem = "audio"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return t.Format(timeLayout) + "_" + stem + "_" + suffix
}

// SafeName reduces name to ASCII letters, digits, '_', '-' and '.'.
// Whitespace becomes '_', directory parts are dropped and leading or trailing
// dots and underscores are trimmed. The result may be empty.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.'):
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
