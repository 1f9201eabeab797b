// Package encoding converts the fixed-width name buffers of PSK and PSA
// files to and from UTF-8.
//
// Exporters write bone, material and sequence names as raw bytes, almost
// always ASCII and occasionally Windows-1252. The psx codec keeps those bytes
// untouched; this package is for display and for names typed by a user.
package encoding

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// NameToUTF8 converts a name read from a file to UTF-8. Valid UTF-8 is
// returned as is; anything else is decoded as Windows-1252.
func NameToUTF8(name string) string {
	if utf8.ValidString(name) {
		return name
	}
	result, _, err := transform.String(charmap.Windows1252.NewDecoder(), name)
	if err != nil {
		return name
	}
	return result
}

// UTF8ToName converts s to the Windows-1252 bytes stored in a name buffer.
// Runes Windows-1252 cannot represent make it return s unchanged.
func UTF8ToName(s string) string {
	result, _, err := transform.String(charmap.Windows1252.NewEncoder(), s)
	if err != nil {
		return s
	}
	return result
}
