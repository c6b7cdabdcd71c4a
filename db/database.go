package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	//sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/chris-pikul/go-streamkeeper/log"
)

//Store owns the SQLite config database: settings, streamers,
//channels and the quality cache. Every exported method runs as one
//transaction, and calls are serialized on a single connection.
type Store struct {
	filename string
	expected int
	plan     Plan

	lock sync.Mutex
	db   *sql.DB

	now func() time.Time
}

type querier interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

//Open opens the database file, creating and initializing it when it does
//not exist yet, using the compiled in migration plan.
func Open(filename string, expectedVersion int) (*Store, error) {
	return OpenWithPlan(filename, expectedVersion, DefaultPlan)
}

//OpenWithPlan is Open with a caller supplied migration plan.
//
//A new file gets the full schema, the default settings and streamer, and
//is migrated straight to expectedVersion. If any of that fails the file is
//removed and an *InitError is returned.
//
//An existing file is compacted, its statistics refreshed, and expired cache
//rows are pruned. It is never migrated here, see IsMigrationNeeded.
func OpenWithPlan(filename string, expectedVersion int, plan Plan) (*Store, error) {
	if filename == "" {
		return nil, errors.New("database filename is empty")
	}
	if expectedVersion < InitialVersion {
		return nil, fmt.Errorf("expected database version %d is below the initial version %d", expectedVersion, InitialVersion)
	}

	s := &Store{
		filename: filename,
		expected: expectedVersion,
		plan:     plan,
		now:      time.Now,
	}

	createSchema := false
	if _, err := os.Stat(filename); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Infof("creating database file %s", filename)
		createSchema = true
	}

	if err := s.connect(); err != nil {
		if createSchema {
			removeDatabaseFiles(filename)
			return nil, &InitError{Filename: filename, Err: err}
		}
		return nil, err
	}
	log.Debugf("database connection opened to file %s", filename)

	if createSchema {
		if err := s.initialize(); err != nil {
			s.disconnect()
			removeDatabaseFiles(filename)
			return nil, &InitError{Filename: filename, Err: err}
		}
	} else {
		cur, err := readVersion(s.db)
		if err != nil {
			s.disconnect()
			return nil, err
		}
		if cur > expectedVersion {
			s.disconnect()
			return nil, fmt.Errorf("%w: file is at %d, expected %d", ErrSchemaTooNew, cur, expectedVersion)
		}

		s.housekeeping()
	}

	if _, err := s.cleanQualityCache(CleanOptions{}); err != nil {
		s.disconnect()
		return nil, err
	}

	return s, nil
}

//Close terminates and clears the database connection
func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	log.Debug("closing database connection")
	return s.disconnect()
}

//Filename returns the path of the backing file
func (s *Store) Filename() string {
	return s.filename
}

//ExpectedVersion returns the version this store migrates towards
func (s *Store) ExpectedVersion() int {
	return s.expected
}

func (s *Store) connect() error {
	if s.db != nil {
		return nil
	}

	conn, err := sql.Open("sqlite3", s.filename+"?_foreign_keys=1")
	if err != nil {
		return err
	}

	//A single connection keeps transactions strictly serialized
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return err
	}

	s.db = conn
	return nil
}

func (s *Store) disconnect() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	return err
}

//withTx runs fn inside a transaction, the caller must hold the lock
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return ErrNotOpen
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Err("failed to roll back transaction", rbErr)
		}
		return translateError(err)
	}

	return translateError(tx.Commit())
}

//transact locks the store and runs fn as one unit of work
func (s *Store) transact(fn func(tx *sql.Tx) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.withTx(fn)
}

//initialize builds the schema, seeds it at InitialVersion
//and migrates up to the expected version
func (s *Store) initialize() error {
	log.Info("setting up database schema")

	err := s.withTx(func(tx *sql.Tx) error {
		for _, schema := range []string{configSchema, streamerSchema, cacheSchema} {
			if _, err := tx.Exec(schema); err != nil {
				return err
			}
		}

		if err := insertConfigEntries(tx, initialConfig); err != nil {
			return err
		}

		for _, st := range initialStreamers {
			if _, err := insertStreamer(tx, st); err != nil {
				return fmt.Errorf("seeding streamer %s: %w", st.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Infof("set schema version to %d", InitialVersion)
	return s.executeMigrations(s.plan)
}

var housekeepingStatements = []string{"VACUUM", "ANALYZE"}

//housekeeping compacts the file and refreshes the planner statistics.
//Failures are only logged.
func (s *Store) housekeeping() {
	for _, stmt := range housekeepingStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			log.WithField("statement", stmt).WithError(err).Warn("database housekeeping failed")
		}
	}
}

//MakeBackup closes the connection, copies the database file next to the
//original with a timestamp suffix, and reconnects. Returns the backup path.
//No other store call may run during a backup.
func (s *Store) MakeBackup() (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.db == nil {
		return "", ErrNotOpen
	}

	if err := s.disconnect(); err != nil {
		return "", err
	}

	target := nextBackupName(s.filename, s.now())
	copyErr := copyFile(s.filename, target)

	if err := s.connect(); err != nil {
		return "", fmt.Errorf("reconnecting after backup: %w", err)
	}
	if copyErr != nil {
		return "", copyErr
	}

	log.Infof("database backed up to %s", target)
	return target, nil
}

func backupName(filename string, t time.Time, n int) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	if n > 0 {
		return fmt.Sprintf("%s.%s-%d.backup", base, t.Format("20060102_150405"), n)
	}
	return fmt.Sprintf("%s.%s.backup", base, t.Format("20060102_150405"))
}

//nextBackupName numbers the name when a backup from the same second exists
func nextBackupName(filename string, t time.Time) string {
	for n := 0; ; n++ {
		name := backupName(filename, t, n)
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
	}
}

//copyFile writes to a temporary sibling and renames it into place,
//so target either holds the full copy or does not exist
func copyFile(src, target string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := target + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, target)
}

func removeDatabaseFiles(filename string) {
	for _, name := range []string{filename, filename + "-journal", filename + "-wal", filename + "-shm"} {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			log.Err("failed to remove database file %s", name, err)
		}
	}
}
