package db

import (
	"database/sql"

	"github.com/chris-pikul/go-streamkeeper/log"
)

//Step moves the schema from version N-1 to N. The version bump is
//written by the engine in the same transaction, after the step returns.
type Step func(tx *sql.Tx) error

//Plan maps a target version to the step that reaches it
type Plan map[int]Step

//DefaultPlan holds every step of this build, up to SchemaVersion
var DefaultPlan = Plan{
	2: migrateToVersion2,
	3: migrateToVersion3,
	4: migrateToVersion4,
}

//Version returns the schema version recorded in the file
func (s *Store) Version() (int, error) {
	var v int
	err := s.transact(func(tx *sql.Tx) error {
		var err error
		v, err = readVersion(tx)
		return err
	})
	return v, err
}

//IsMigrationNeeded reports whether the file is behind the expected version
func (s *Store) IsMigrationNeeded() (bool, error) {
	v, err := s.Version()
	if err != nil {
		return false, err
	}
	return v < s.expected, nil
}

//ExecuteMigration migrates the store to its expected version with the
//plan it was opened with
func (s *Store) ExecuteMigration() error {
	return ExecuteMigrations(s, s.plan)
}

//ExecuteMigrations applies plan's steps for every version after the
//recorded one up to the store's expected version, in order. Each step
//commits on its own, so a failure leaves the store at the last version
//that succeeded. A version without a step stops the run with
//ErrMigrationPlanMissing.
func ExecuteMigrations(s *Store, plan Plan) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.executeMigrations(plan)
}

func (s *Store) executeMigrations(plan Plan) error {
	if s.db == nil {
		return ErrNotOpen
	}

	current, err := readVersion(s.db)
	if err != nil {
		return err
	}
	if current > s.expected {
		return ErrSchemaTooNew
	}

	for v := current + 1; v <= s.expected; v++ {
		step, ok := plan[v]
		if !ok || step == nil {
			return &MigrationError{Version: v, Err: ErrMigrationPlanMissing}
		}

		version := v
		err := s.withTx(func(tx *sql.Tx) error {
			if err := step(tx); err != nil {
				return err
			}
			return setVersion(tx, version)
		})
		if err != nil {
			return &MigrationError{Version: v, Err: err}
		}

		log.WithField("version", v).Info("migrated database schema")
	}

	return nil
}

func migrateToVersion2(tx *sql.Tx) error {
	return insertConfigEntries(tx, []ConfigEntry{
		{"enable-systray-icon", IntValue(1)},
		{"minimize-to-systray", IntValue(0)},
		{"close-to-systray", IntValue(0)},
	})
}

func migrateToVersion3(tx *sql.Tx) error {
	return insertConfigEntries(tx, []ConfigEntry{
		{"remember-window-position", IntValue(0)},
	})
}

func migrateToVersion4(tx *sql.Tx) error {
	return insertConfigEntries(tx, []ConfigEntry{
		{"probe-command-format", TextValue(`{livestreamer} "{url}"`)},
	})
}
