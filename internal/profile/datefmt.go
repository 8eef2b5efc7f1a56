package profile

import "strings"

// dateTokens maps profile date-pattern tokens to Go reference layout
// fragments. Longer tokens come first so "yyyy" wins over "yy".
var dateTokens = []struct {
	token  string
	layout string
}{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSS", "000"},
	{"a", "PM"},
}

// TranslateDateTokens converts a pattern written in the profile
// notation (dd/MM/yyyy, HH:mm:ss) into a Go reference layout. Single
// quotes escape literal text; anything outside the token alphabet
// passes through unchanged.
func TranslateDateTokens(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		if pattern[i] == '\'' {
			j := i + 1
			for j < len(pattern) && pattern[j] != '\'' {
				j++
			}
			b.WriteString(pattern[i+1 : j])
			i = j + 1
			continue
		}
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok.token) {
				b.WriteString(tok.layout)
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}
