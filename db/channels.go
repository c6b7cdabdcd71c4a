package db

import (
	"database/sql"
	"strings"
)

//Channel is a stream endpoint belonging to one streamer. Within a
//streamer the name and url are each unique, and at most one channel
//is the favorite.
type Channel struct {
	ID         int64
	Name       string
	URL        string
	Favorite   bool
	StreamerID int64
}

const channelColumns = `c.id, c.name, c.url, c.favorite, c.streamer_id`

func scanChannel(row rowScanner) (Channel, error) {
	var ch Channel
	err := row.Scan(&ch.ID, &ch.Name, &ch.URL, &ch.Favorite, &ch.StreamerID)
	return ch, err
}

//GetStreamerChannel looks up a channel by streamer and channel name
func (s *Store) GetStreamerChannel(streamerName, channelName string) (Channel, bool, error) {
	var (
		ch Channel
		ok bool
	)
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		ch, ok, err = getChannel(tx, streamerName, channelName)
		return err
	})
	return ch, ok, err
}

//GetChannelByURL looks up a channel of the streamer by its url
func (s *Store) GetChannelByURL(streamerName, url string) (Channel, bool, error) {
	var (
		ch Channel
		ok bool
	)
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		ch, err = scanChannel(tx.QueryRow(`SELECT `+channelColumns+` FROM channel c
			JOIN streamer s ON s.id = c.streamer_id
			WHERE s.name = ? AND c.url = ?`, streamerName, strings.TrimSpace(url)))
		if err == sql.ErrNoRows {
			return nil
		}
		ok = err == nil
		return err
	})
	return ch, ok, err
}

//GetStreamerChannels returns the streamer's channels ordered by name.
//An unknown streamer has no channels.
func (s *Store) GetStreamerChannels(streamerName string) ([]Channel, error) {
	var list []Channel
	err := s.transact(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT `+channelColumns+` FROM channel c
			JOIN streamer s ON s.id = c.streamer_id
			WHERE s.name = ? ORDER BY c.name`, streamerName)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			ch, err := scanChannel(rows)
			if err != nil {
				return err
			}
			list = append(list, ch)
		}
		return rows.Err()
	})
	return list, err
}

//AddChannel creates a channel under the named streamer
func (s *Store) AddChannel(streamerName, channelName, url string, favorite bool) error {
	channelName, url, err := cleanChannelFields(channelName, url)
	if err != nil {
		return err
	}

	return s.transact(func(tx *sql.Tx) error {
		st, ok, err := getStreamer(tx, streamerName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		res, err := tx.Exec(`INSERT INTO channel (name, url, streamer_id) VALUES (?, ?, ?)`, channelName, url, st.ID)
		if err != nil {
			return err
		}

		if favorite {
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			return setFavoriteChannel(tx, st.ID, id)
		}
		return nil
	})
}

//UpdateChannel renames and re-points an existing channel. The favorite
//flag is reset and then set again only when favorite is true. The new
//name and url must not collide with another channel of the streamer.
func (s *Store) UpdateChannel(streamerName, channelName, newName, newURL string, favorite bool) error {
	newName, newURL, err := cleanChannelFields(newName, newURL)
	if err != nil {
		return err
	}

	return s.transact(func(tx *sql.Tx) error {
		ch, ok, err := getChannel(tx, streamerName, channelName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		var clashes int
		err = tx.QueryRow(`SELECT COUNT(*) FROM channel WHERE streamer_id = ? AND id <> ? AND (name = ? OR url = ?)`,
			ch.StreamerID, ch.ID, newName, newURL).Scan(&clashes)
		if err != nil {
			return err
		}
		if clashes > 0 {
			return constraintf("channel name %q or url %q already used by streamer %s", newName, newURL, streamerName)
		}

		if _, err := tx.Exec(`UPDATE channel SET name = ?, url = ?, favorite = 0 WHERE id = ?`, newName, newURL, ch.ID); err != nil {
			return err
		}

		if favorite {
			return setFavoriteChannel(tx, ch.StreamerID, ch.ID)
		}
		return nil
	})
}

//DeleteChannel removes the channel together with its cached qualities
func (s *Store) DeleteChannel(streamerName, channelName string) error {
	return s.transact(func(tx *sql.Tx) error {
		ch, ok, err := getChannel(tx, streamerName, channelName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		if _, err := tx.Exec(`DELETE FROM quality_cache WHERE channel_id = ?`, ch.ID); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM channel WHERE id = ?`, ch.ID)
		return err
	})
}

//SetFavoriteChannel makes the channel the only favorite of its streamer
func (s *Store) SetFavoriteChannel(streamerName, channelName string) error {
	return s.transact(func(tx *sql.Tx) error {
		ch, ok, err := getChannel(tx, streamerName, channelName)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return setFavoriteChannel(tx, ch.StreamerID, ch.ID)
	})
}

func getChannel(q querier, streamerName, channelName string) (Channel, bool, error) {
	ch, err := scanChannel(q.QueryRow(`SELECT `+channelColumns+` FROM channel c
		JOIN streamer s ON s.id = c.streamer_id
		WHERE s.name = ? AND c.name = ?`, streamerName, channelName))
	if err == sql.ErrNoRows {
		return Channel{}, false, nil
	}
	if err != nil {
		return Channel{}, false, err
	}
	return ch, true, nil
}

func setFavoriteChannel(q querier, streamerID, channelID int64) error {
	if _, err := q.Exec(`UPDATE channel SET favorite = 0 WHERE streamer_id = ? AND favorite`, streamerID); err != nil {
		return err
	}
	_, err := q.Exec(`UPDATE channel SET favorite = 1 WHERE id = ? AND streamer_id = ?`, channelID, streamerID)
	return err
}

func cleanChannelFields(name, url string) (string, string, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)

	if name == "" {
		return "", "", constraintf("channel name must not be empty")
	}
	if url == "" {
		return "", "", constraintf("channel url must not be empty")
	}
	return name, url, nil
}
