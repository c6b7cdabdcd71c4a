package db

import (
	"database/sql"
	"strings"

	"github.com/chris-pikul/go-streamkeeper/log"
)

//CleanMode selects which quality cache rows CleanQualityCache removes
type CleanMode int

const (
	//CleanGlobalExpired removes expired rows of every channel
	CleanGlobalExpired CleanMode = iota
	//CleanGlobalAll empties the cache
	CleanGlobalAll
	//CleanChannelExpired removes expired rows of one channel
	CleanChannelExpired
	//CleanChannelAll removes every row of one channel, forcing a re-probe
	CleanChannelAll
)

func (m CleanMode) String() string {
	switch m {
	case CleanGlobalExpired:
		return "global-expired"
	case CleanGlobalAll:
		return "global-all"
	case CleanChannelExpired:
		return "channel-expired"
	case CleanChannelAll:
		return "channel-all"
	}
	return "unknown"
}

//cachedAt reads timestamp as unix seconds. Files written by older
//builds hold 'YYYY-MM-DD HH:MM:SS' text in UTC, which would otherwise
//sort above every integer and never expire.
const cachedAt = `(CASE typeof(timestamp) WHEN 'text' THEN CAST(strftime('%s', timestamp) AS INTEGER) ELSE timestamp END)`

var cleanStatements = map[CleanMode]string{
	CleanGlobalExpired:  `DELETE FROM quality_cache WHERE ` + cachedAt + ` < ?`,
	CleanGlobalAll:      `DELETE FROM quality_cache`,
	CleanChannelExpired: `DELETE FROM quality_cache WHERE ` + cachedAt + ` < ? AND streamer_id = ? AND channel_id = ?`,
	CleanChannelAll:     `DELETE FROM quality_cache WHERE streamer_id = ? AND channel_id = ?`,
}

//CleanOptions scopes a cache cleaning. The cleaning only targets one
//channel when both Streamer and Channel are set.
type CleanOptions struct {
	Streamer string
	Channel  string

	//IgnoreTimestamp removes rows whether they expired or not
	IgnoreTimestamp bool
}

//Scoped reports whether the options name a single channel
func (o CleanOptions) Scoped() bool {
	return o.Streamer != "" && o.Channel != ""
}

//Mode resolves the options to one of the four cleaning modes
func (o CleanOptions) Mode() CleanMode {
	switch {
	case o.Scoped() && o.IgnoreTimestamp:
		return CleanChannelAll
	case o.Scoped():
		return CleanChannelExpired
	case o.IgnoreTimestamp:
		return CleanGlobalAll
	}
	return CleanGlobalExpired
}

//AddQualityToCache records the probed quality names of a channel with the
//current time. Names already cached get their timestamp refreshed.
func (s *Store) AddQualityToCache(streamerName, channelName string, qualities []string) error {
	return s.transact(func(tx *sql.Tx) error {
		ch, ok, err := getChannel(tx, streamerName, channelName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		ts := s.now().Unix()
		for _, name := range qualities {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			_, err := tx.Exec(`INSERT INTO quality_cache (streamer_id, channel_id, timestamp, name) VALUES (?, ?, ?, ?)
				ON CONFLICT(streamer_id, channel_id, name) DO UPDATE SET timestamp = excluded.timestamp`,
				ch.StreamerID, ch.ID, ts, name)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

//GetQualityFromCache returns the channel's cached quality names that have
//not expired, ordered by name. An unknown channel yields an empty list.
func (s *Store) GetQualityFromCache(streamerName, channelName string) ([]string, error) {
	names := []string{}
	err := s.transact(func(tx *sql.Tx) error {
		ch, ok, err := getChannel(tx, streamerName, channelName)
		if err != nil || !ok {
			return err
		}

		cutoff, err := s.cacheCutoff(tx)
		if err != nil {
			return err
		}

		rows, err := tx.Query(`SELECT name FROM quality_cache
			WHERE streamer_id = ? AND channel_id = ? AND `+cachedAt+` >= ?
			ORDER BY name`, ch.StreamerID, ch.ID, cutoff)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		return rows.Err()
	})
	return names, err
}

//CleanQualityCache deletes cached qualities per opts.Mode() and returns the
//number of rows removed. Naming a channel that does not exist removes nothing.
func (s *Store) CleanQualityCache(opts CleanOptions) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.cleanQualityCache(opts)
}

func (s *Store) cleanQualityCache(opts CleanOptions) (int64, error) {
	var removed int64
	mode := opts.Mode()

	err := s.withTx(func(tx *sql.Tx) error {
		var args []interface{}

		if mode == CleanGlobalExpired || mode == CleanChannelExpired {
			cutoff, err := s.cacheCutoff(tx)
			if err != nil {
				return err
			}
			args = append(args, cutoff)
		}

		if opts.Scoped() {
			ch, ok, err := getChannel(tx, opts.Streamer, opts.Channel)
			if err != nil || !ok {
				return err
			}
			args = append(args, ch.StreamerID, ch.ID)
		}

		res, err := tx.Exec(cleanStatements[mode], args...)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	log.WithField("mode", mode).Debugf("removed %d quality cache rows", removed)
	return removed, nil
}

//cacheCutoff is the oldest timestamp still considered fresh. The lifetime
//is read on every call so a changed setting applies immediately.
func (s *Store) cacheCutoff(q querier) (int64, error) {
	minutes, err := configInt(q, KeyCacheLifetime)
	if err != nil {
		return 0, err
	}
	return s.now().Unix() - minutes*60, nil
}
