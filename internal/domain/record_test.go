package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestPreview_ShortTextUnchanged(t *testing.T) {
	require.Equal(t, "hello", Preview("hello"))
	require.Equal(t, "", Preview(""))
}

func TestPreview_TruncatesToLength(t *testing.T) {
	long := strings.Repeat("a", PreviewLength+50)
	got := Preview(long)
	require.Len(t, got, PreviewLength)
	require.Equal(t, long[:PreviewLength], got)
}

func TestPreview_MultibyteTextStaysValidUTF8(t *testing.T) {
	long := strings.Repeat("日", PreviewLength+5)
	got := Preview(long)
	require.Equal(t, PreviewLength, utf8.RuneCountInString(got))
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("日", PreviewLength), got)
}

func TestPreview_MultibyteAtLimitUnchanged(t *testing.T) {
	// 100 characters but 300 bytes: counted by character, not byte.
	text := strings.Repeat("日", PreviewLength)
	require.Equal(t, text, Preview(text))
}
