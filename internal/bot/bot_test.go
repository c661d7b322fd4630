package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/familyschedule/internal/domain"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"  ", 0, false},
		{"+1", 1, false},
		{"1", 1, false},
		{"-2", -2, false},
		{"52", 52, false},
		{"53", 0, true},
		{"nästa", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseCallback(t *testing.T) {
	a, err := parseCallback("week:-1")
	require.NoError(t, err)
	assert.Equal(t, callbackAction{kind: "week", offset: -1}, a)

	a, err = parseCallback("member:rut:2")
	require.NoError(t, err)
	assert.Equal(t, callbackAction{kind: "member", memberID: "rut", offset: 2}, a)

	a, err = parseCallback("today")
	require.NoError(t, err)
	assert.Equal(t, "today", a.kind)

	for _, bad := range []string{"", "week", "week:x", "member:rut", "member::1", "member:rut:x", "done:5"} {
		_, err := parseCallback(bad)
		assert.Error(t, err, bad)
	}
}

func TestKeyboards(t *testing.T) {
	kb := weekKeyboard(0)
	require.Len(t, kb.InlineKeyboard, 1)
	row := kb.InlineKeyboard[0]
	require.Len(t, row, 3)
	assert.Equal(t, "week:-1", *row[0].CallbackData)
	assert.Equal(t, "today", *row[1].CallbackData)
	assert.Equal(t, "week:1", *row[2].CallbackData)

	kb = memberWeekKeyboard("pim", 3)
	row = kb.InlineKeyboard[0]
	assert.Equal(t, "member:pim:2", *row[0].CallbackData)
	assert.Equal(t, "week:3", *row[1].CallbackData)
	assert.Equal(t, "member:pim:4", *row[2].CallbackData)

	kb = membersKeyboard(domain.DefaultFamily())
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 3)
	assert.Len(t, kb.InlineKeyboard[1], 2)
	assert.Equal(t, "member:rut:0", *kb.InlineKeyboard[0][0].CallbackData)

	// Every callback the keyboards emit must parse.
	for _, r := range kb.InlineKeyboard {
		for _, b := range r {
			_, err := parseCallback(*b.CallbackData)
			assert.NoError(t, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Rut", truncate("Rut", 5))
	assert.Equal(t, "Måndagsdan…", truncate("Måndagsdansen", 11))
}
