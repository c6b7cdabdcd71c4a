package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chris-pikul/go-streamkeeper/db"
)

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}

	for input, want := range cases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(input), &out, "migrate?")
		require.NoError(t, err)
		require.Equal(t, want, got, "input %q", input)
		require.Equal(t, "migrate? [y/N] ", out.String())
	}
}

func TestParseValue(t *testing.T) {
	val, err := parseValue("1440", true)
	require.NoError(t, err)
	require.Equal(t, db.IntValue(1440), val)

	val, err = parseValue("1440", false)
	require.NoError(t, err)
	require.Equal(t, db.TextValue("1440"), val)

	_, err = parseValue("soon", true)
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	require.NoError(t, describe(nil, "channel %s", "a"))

	err := describe(db.ErrNotFound, "channel %s of %s", "a", "twitch.tv")
	require.EqualError(t, err, "channel a of twitch.tv does not exist")

	err = describe(&db.ConstraintError{Err: errors.New("dup")}, "channel %s", "a")
	require.True(t, errors.Is(err, db.ErrConstraintViolation))
	require.Contains(t, err.Error(), "channel a was rejected")

	other := errors.New("disk full")
	require.Equal(t, other, describe(other, "channel %s", "a"))
}
