package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueKinds(t *testing.T) {
	i := IntValue(42)
	n, ok := i.Int()
	require.True(t, ok)
	require.Equal(t, int64(42), n)
	_, ok = i.Text()
	require.False(t, ok)
	require.Equal(t, "42", i.String())

	s := TextValue("#fbff00")
	str, ok := s.Text()
	require.True(t, ok)
	require.Equal(t, "#fbff00", str)
	_, ok = s.Int()
	require.False(t, ok)

	require.Equal(t, IntValue(1), BoolValue(true))
	require.Equal(t, KindNone, Value{}.Kind())
}

func TestGetConfigValue(t *testing.T) {
	s := openTestStore(t)

	val, ok, err := s.GetConfigValue("timestamp-format")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TextValue("[%H:%M:%S]"), val)

	_, ok, err = s.GetConfigValue("no-such-setting")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetConfigValue(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetConfigValue("root-width", IntValue(1024)))
	val, _, err := s.GetConfigValue("root-width")
	require.NoError(t, err)
	require.Equal(t, IntValue(1024), val)

	require.NoError(t, s.SetConfigValue("player-path", TextValue("/usr/bin/mpv")))
	val, _, err = s.GetConfigValue("player-path")
	require.NoError(t, err)
	require.Equal(t, TextValue("/usr/bin/mpv"), val)

	//New names are inserted
	require.NoError(t, s.SetConfigValue("brand-new", TextValue("x")))
	_, ok, err := s.GetConfigValue("brand-new")
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, ErrInvalidValue, s.SetConfigValue("root-width", Value{}))
}

func TestSetConfigValueSwitchesKind(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SetConfigValue("root-width", TextValue("wide")))
	val, _, err := s.GetConfigValue("root-width")
	require.NoError(t, err)
	require.Equal(t, TextValue("wide"), val)

	require.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM config WHERE name = 'root-width' AND intval IS NULL AND strval = 'wide'`))
}

func TestGetConfigValues(t *testing.T) {
	s := openTestStore(t)

	entries, err := s.GetConfigValues()
	require.NoError(t, err)
	require.Len(t, entries, len(initialConfig)+5)

	for i := 1; i < len(entries); i++ {
		require.True(t, entries[i-1].Name < entries[i].Name)
	}
}
