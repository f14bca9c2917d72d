package logger

import "strings"

// stripAnsiCodes drops CSI sequences (\x1b[ ... letter) so the file and JSON
// handlers don't end up with terminal colour codes in them.
func stripAnsiCodes(s string) string {
	if strings.IndexByte(s, '\x1b') < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\x1b' || i+1 >= len(s) || s[i+1] != '[' {
			b.WriteByte(s[i])
			continue
		}

		// skip to the final byte of the sequence
		i += 2
		for i < len(s) && !isAnsiFinal(s[i]) {
			i++
		}
	}

	return b.String()
}

func isAnsiFinal(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
