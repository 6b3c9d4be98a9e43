package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCSVRows(t *testing.T) {
	rows, err := parseCSVRows(strings.NewReader("text,user_id\nhello,u1\nworld,u2\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"hello", "world"}, rows)
}

func TestParseCSVRows_TextColumnPosition(t *testing.T) {
	rows, err := parseCSVRows(strings.NewReader("id,Text,notes\n1,first,x\n2,second,y\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second"}, rows)
}

func TestParseCSVRows_QuotedText(t *testing.T) {
	rows, err := parseCSVRows(strings.NewReader("text\n\"has, a comma\"\n\"two\nlines\"\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"has, a comma", "two\nlines"}, rows)
}

func TestParseCSVRows_ShortRowBecomesEmptyText(t *testing.T) {
	rows, err := parseCSVRows(strings.NewReader("id,text\n1,ok\n2\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"ok", ""}, rows)
}

func TestParseCSVRows_MissingTextColumn(t *testing.T) {
	_, err := parseCSVRows(strings.NewReader("body,user_id\nhello,u1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), `"text"`)
}

func TestParseCSVRows_EmptyInput(t *testing.T) {
	_, err := parseCSVRows(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseCSVRows_HeaderOnly(t *testing.T) {
	rows, err := parseCSVRows(strings.NewReader("text\n"))
	require.NoError(t, err)
	require.Empty(t, rows)
}
