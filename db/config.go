package db

import (
	"database/sql"
	"fmt"
)

//GetConfigValue returns the named setting. The bool is false when no
//such setting exists.
func (s *Store) GetConfigValue(name string) (Value, bool, error) {
	var (
		val Value
		ok  bool
	)
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		val, ok, err = getConfigValue(tx, name)
		return err
	})
	return val, ok, err
}

//GetConfigValues returns every setting ordered by name
func (s *Store) GetConfigValues() ([]ConfigEntry, error) {
	var entries []ConfigEntry
	err := s.transact(func(tx *sql.Tx) error {
		rows, err := tx.Query(`SELECT name, intval, strval FROM config ORDER BY name`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			val, ok, err := scanConfigValue(rows, &name)
			if err != nil {
				return err
			}
			if ok {
				entries = append(entries, ConfigEntry{Name: name, Value: val})
			}
		}
		return rows.Err()
	})
	return entries, err
}

//SetConfigValue creates or overwrites the named setting. The column
//written follows the value's kind and the other column is cleared.
func (s *Store) SetConfigValue(name string, val Value) error {
	return s.transact(func(tx *sql.Tx) error {
		return setConfigValue(tx, name, val)
	})
}

func getConfigValue(q querier, name string) (Value, bool, error) {
	row := q.QueryRow(`SELECT intval, strval FROM config WHERE name = ?`, name)
	val, ok, err := scanConfigValue(row)
	if err == sql.ErrNoRows {
		return Value{}, false, nil
	}
	return val, ok, err
}

//scanConfigValue reads (extra..., intval, strval) from a row
func scanConfigValue(row rowScanner, extra ...interface{}) (Value, bool, error) {
	var (
		iv sql.NullInt64
		sv sql.NullString
	)
	if err := row.Scan(append(extra, &iv, &sv)...); err != nil {
		return Value{}, false, err
	}

	if iv.Valid {
		return IntValue(iv.Int64), true, nil
	}
	if sv.Valid {
		return TextValue(sv.String), true, nil
	}
	return Value{}, false, nil
}

func setConfigValue(q querier, name string, val Value) error {
	if val.Kind() == KindNone {
		return ErrInvalidValue
	}

	iv, sv := val.columns()
	_, err := q.Exec(`INSERT INTO config (name, intval, strval) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET intval = excluded.intval, strval = excluded.strval`,
		name, iv, sv)
	return err
}

//configInt reads an integer setting that must exist
func configInt(q querier, name string) (int64, error) {
	val, ok, err := getConfigValue(q, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("config value %s: %w", name, ErrNotFound)
	}

	i, isInt := val.Int()
	if !isInt {
		return 0, fmt.Errorf("config value %s is %s, expected int", name, val.Kind())
	}
	return i, nil
}

//insertConfigEntries adds new settings, an existing name is a constraint violation
func insertConfigEntries(q querier, entries []ConfigEntry) error {
	for _, e := range entries {
		if e.Value.Kind() == KindNone {
			return fmt.Errorf("config value %s: %w", e.Name, ErrInvalidValue)
		}

		iv, sv := e.Value.columns()
		if _, err := q.Exec(`INSERT INTO config (name, intval, strval) VALUES (?, ?, ?)`, e.Name, iv, sv); err != nil {
			return fmt.Errorf("inserting config value %s: %w", e.Name, err)
		}
	}
	return nil
}

func readVersion(q querier) (int, error) {
	v, err := configInt(q, KeyVersion)
	if err != nil {
		return 0, fmt.Errorf("could not read the schema version of the database, it may be corrupt: %w", err)
	}
	return int(v), nil
}

func setVersion(q querier, version int) error {
	res, err := q.Exec(`UPDATE config SET intval = ?, strval = NULL WHERE name = ?`, version, KeyVersion)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("schema version entry %s: %w", KeyVersion, ErrNotFound)
	}
	return nil
}
