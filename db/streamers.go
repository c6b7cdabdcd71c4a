package db

import (
	"database/sql"
	"strings"
)

//Streamer is a streaming service that channels are organized under.
//At most one streamer is the favorite.
type Streamer struct {
	ID       int64
	Name     string
	URL      string
	Icon     string
	Favorite bool
}

const streamerColumns = `id, name, url, icon, favorite`

func scanStreamer(row rowScanner) (Streamer, error) {
	var st Streamer
	err := row.Scan(&st.ID, &st.Name, &st.URL, &st.Icon, &st.Favorite)
	return st, err
}

//GetStreamer looks up a streamer by name
func (s *Store) GetStreamer(name string) (Streamer, bool, error) {
	var (
		st Streamer
		ok bool
	)
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		st, ok, err = getStreamer(tx, name)
		return err
	})
	return st, ok, err
}

//GetStreamers returns all streamers ordered by name
func (s *Store) GetStreamers() ([]Streamer, error) {
	var list []Streamer
	err := s.transact(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT ` + streamerColumns + ` FROM streamer ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			st, err := scanStreamer(rows)
			if err != nil {
				return err
			}
			list = append(list, st)
		}
		return rows.Err()
	})
	return list, err
}

//GetFavoriteStreamer returns the favorite streamer, the bool is false
//when none is marked
func (s *Store) GetFavoriteStreamer() (Streamer, bool, error) {
	var (
		st Streamer
		ok bool
	)
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		st, err = scanStreamer(tx.QueryRow(`SELECT ` + streamerColumns + ` FROM streamer WHERE favorite ORDER BY name LIMIT 1`))
		if err == sql.ErrNoRows {
			return nil
		}
		ok = err == nil
		return err
	})
	return st, ok, err
}

//AddStreamer creates a streamer and returns its id. Marking it favorite
//clears the flag on every other streamer.
func (s *Store) AddStreamer(name, url, icon string, favorite bool) (int64, error) {
	var id int64
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		id, err = insertStreamer(tx, Streamer{Name: name, URL: url, Icon: icon, Favorite: favorite})
		return err
	})
	return id, err
}

//SetFavoriteStreamer makes name the only favorite streamer
func (s *Store) SetFavoriteStreamer(name string) error {
	return s.transact(func(tx *sql.Tx) error {
		st, ok, err := getStreamer(tx, name)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return setFavoriteStreamer(tx, st.ID)
	})
}

func getStreamer(q querier, name string) (Streamer, bool, error) {
	st, err := scanStreamer(q.QueryRow(`SELECT `+streamerColumns+` FROM streamer WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return Streamer{}, false, nil
	}
	if err != nil {
		return Streamer{}, false, err
	}
	return st, true, nil
}

func insertStreamer(q querier, st Streamer) (int64, error) {
	st.Name = strings.TrimSpace(st.Name)
	st.URL = strings.TrimSpace(st.URL)
	if st.Name == "" {
		return 0, constraintf("streamer name must not be empty")
	}
	if st.URL == "" {
		return 0, constraintf("streamer url must not be empty")
	}

	res, err := q.Exec(`INSERT INTO streamer (name, url, icon, favorite) VALUES (?, ?, ?, 0)`, st.Name, st.URL, st.Icon)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if st.Favorite {
		if err := setFavoriteStreamer(q, id); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func setFavoriteStreamer(q querier, id int64) error {
	if _, err := q.Exec(`UPDATE streamer SET favorite = 0 WHERE favorite`); err != nil {
		return err
	}
	_, err := q.Exec(`UPDATE streamer SET favorite = 1 WHERE id = ?`, id)
	return err
}
