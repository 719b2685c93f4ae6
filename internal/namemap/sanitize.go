// Package namemap keeps the persisted bidirectional mapping between KPI
// names and the filesystem-safe keys used to name their data files.
package namemap

import (
	"strings"
)

// MaxKeyLength bounds the length of a sanitized key (before any suffix).
const MaxKeyLength = 200

// CalDataSuffix is appended to a sanitized key to form a KPI's calculated-data filename.
const CalDataSuffix = "_cal_data.csv"

var replacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
	",", "_",
	"€", "EUR",
	"$", "USD",
)

// Sanitize turns a KPI name into a filesystem-safe key. It does not consult
// the mapping, so distinct names may sanitize to the same key.
func Sanitize(name string) string {
	s := replacer.Replace(name)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r < 128 && r >= 0x20 && r != 0x7f {
			sb.WriteRune(r)
		}
	}
	s = sb.String()

	if len(s) > MaxKeyLength {
		s = s[:MaxKeyLength]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		s = "kpi"
	}
	return s
}
