package db

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanOptionsMode(t *testing.T) {
	cases := []struct {
		opts CleanOptions
		mode CleanMode
	}{
		{CleanOptions{}, CleanGlobalExpired},
		{CleanOptions{IgnoreTimestamp: true}, CleanGlobalAll},
		{CleanOptions{Streamer: "s", Channel: "c"}, CleanChannelExpired},
		{CleanOptions{Streamer: "s", Channel: "c", IgnoreTimestamp: true}, CleanChannelAll},
		{CleanOptions{Streamer: "s"}, CleanGlobalExpired},
		{CleanOptions{Channel: "c", IgnoreTimestamp: true}, CleanGlobalAll},
	}

	for _, c := range cases {
		require.Equal(t, c.mode, c.opts.Mode(), "%+v", c.opts)
	}
}

//cacheStore has two channels and a controllable clock
func cacheStore(t *testing.T) (*Store, *time.Time) {
	s := openTestStore(t)
	clock := time.Now()
	s.now = func() time.Time { return clock }

	require.NoError(t, s.AddChannel("twitch.tv", "a", "http://a", false))
	require.NoError(t, s.AddChannel("twitch.tv", "b", "http://b", false))
	return s, &clock
}

func TestQualityCacheLifetime(t *testing.T) {
	s, clock := cacheStore(t)

	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"720p", "480p"}))

	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"480p", "720p"}, names)

	*clock = clock.Add(1440*time.Minute - time.Second)
	names, err = s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Len(t, names, 2)

	*clock = clock.Add(2 * time.Second)
	names, err = s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestQualityCacheLifetimeReadEachTime(t *testing.T) {
	s, clock := cacheStore(t)

	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"best"}))
	*clock = clock.Add(10 * time.Minute)

	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Len(t, names, 1)

	require.NoError(t, s.SetConfigValue(KeyCacheLifetime, IntValue(5)))
	names, err = s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestAddQualityToCacheRefreshes(t *testing.T) {
	s, clock := cacheStore(t)

	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"720p", " ", "720p"}))
	require.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM quality_cache`))

	*clock = clock.Add(1000 * time.Minute)
	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"720p"}))

	*clock = clock.Add(1000 * time.Minute)
	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"720p"}, names)
}

func TestQualityCacheUnknownChannel(t *testing.T) {
	s, _ := cacheStore(t)

	err := s.AddQualityToCache("twitch.tv", "missing", []string{"720p"})
	require.True(t, errors.Is(err, ErrNotFound))

	names, err := s.GetQualityFromCache("nope", "missing")
	require.NoError(t, err)
	require.NotNil(t, names)
	require.Empty(t, names)

	removed, err := s.CleanQualityCache(CleanOptions{Streamer: "twitch.tv", Channel: "missing", IgnoreTimestamp: true})
	require.NoError(t, err)
	require.Equal(t, int64(0), removed)
}

func TestCleanQualityCache(t *testing.T) {
	s, clock := cacheStore(t)
	start := *clock

	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"old-a"}))
	require.NoError(t, s.AddQualityToCache("twitch.tv", "b", []string{"old-b"}))
	*clock = start.Add(2 * 1440 * time.Minute)
	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"new-a"}))
	require.NoError(t, s.AddQualityToCache("twitch.tv", "b", []string{"new-b"}))

	//Scoped, expired only
	removed, err := s.CleanQualityCache(CleanOptions{Streamer: "twitch.tv", Channel: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Equal(t, 0, countRows(t, s, `SELECT COUNT(*) FROM quality_cache WHERE name = 'old-a'`))

	//Scoped, regardless of age
	removed, err = s.CleanQualityCache(CleanOptions{Streamer: "twitch.tv", Channel: "a", IgnoreTimestamp: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Empty(t, names)

	//Global, expired only
	removed, err = s.CleanQualityCache(CleanOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	names, err = s.GetQualityFromCache("twitch.tv", "b")
	require.NoError(t, err)
	require.Equal(t, []string{"new-b"}, names)

	//Global, everything
	removed, err = s.CleanQualityCache(CleanOptions{IgnoreTimestamp: true})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)
	require.Equal(t, 0, countRows(t, s, `SELECT COUNT(*) FROM quality_cache`))
}

func TestOpenPrunesExpiredCache(t *testing.T) {
	filename := testFilename(t)

	s, err := Open(filename, SchemaVersion)
	require.NoError(t, err)
	require.NoError(t, s.AddChannel("twitch.tv", "a", "http://a", false))

	s.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"stale"}))
	s.now = time.Now
	require.NoError(t, s.AddQualityToCache("twitch.tv", "a", []string{"fresh"}))
	require.NoError(t, s.Close())

	s, err = Open(filename, SchemaVersion)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM quality_cache`))
	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"fresh"}, names)
}

func TestQualityCacheTextTimestamps(t *testing.T) {
	s, _ := cacheStore(t)

	ch, ok, err := s.GetStreamerChannel("twitch.tv", "a")
	require.NoError(t, err)
	require.True(t, ok)

	//Rows written by older builds carry CURRENT_TIMESTAMP text
	recent := time.Now().UTC().Format("2006-01-02 15:04:05")
	for name, ts := range map[string]string{"legacy": "2015-01-01 00:00:00", "recent": recent} {
		_, err := s.db.Exec(`INSERT INTO quality_cache (streamer_id, channel_id, timestamp, name) VALUES (?, ?, ?, ?)`,
			ch.StreamerID, ch.ID, ts, name)
		require.NoError(t, err)
	}
	require.Equal(t, 2, countRows(t, s, `SELECT COUNT(*) FROM quality_cache WHERE typeof(timestamp) = 'text'`))

	names, err := s.GetQualityFromCache("twitch.tv", "a")
	require.NoError(t, err)
	require.Equal(t, []string{"recent"}, names)

	removed, err := s.CleanQualityCache(CleanOptions{})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	removed, err = s.CleanQualityCache(CleanOptions{Streamer: "twitch.tv", Channel: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(0), removed)
	require.Equal(t, 1, countRows(t, s, `SELECT COUNT(*) FROM quality_cache WHERE name = 'recent'`))
}
