package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeUploadName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain name", input: "avatar.png", want: "avatar.png"},
		{name: "spaces and symbols", input: " my <avatar>?.png ", want: "my_avatar_.png"},
		{name: "unix traversal", input: "../../etc/passwd", want: "passwd"},
		{name: "windows traversal", input: `..\..\boot.ini`, want: "boot.ini"},
		{name: "hidden file", input: ".env", want: "env"},
		{name: "zero width", input: "cover\u200B.jpg", want: "cover.jpg"},
		{name: "empty", input: "   ", want: "upload"},
		{name: "only dots", input: "..", want: "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeUploadName(tt.input))
		})
	}
}

func TestSanitizeUploadNameTruncatesKeepingExtension(t *testing.T) {
	t.Parallel()

	input := strings.Repeat("é", 300) + ".jpeg"
	actual := SanitizeUploadName(input)

	require.True(t, utf8.ValidString(actual))
	require.Len(t, []rune(actual), maxUploadNameRunes)
	require.True(t, strings.HasSuffix(actual, ".jpeg"))
}
