package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chris-pikul/go-streamkeeper/config"
	"github.com/chris-pikul/go-streamkeeper/db"
	"github.com/chris-pikul/go-streamkeeper/janitor"
	"github.com/chris-pikul/go-streamkeeper/log"

	"github.com/urfave/cli"
)

const (
	//Version holds the CLI application version
	Version = "0.2.0"
)

const usageText = `streamkeeper [global options...] command [command options...] [arguments...]

   Manages the livestreamer GUI config database: settings, streamers,
   channels and the stream quality cache.
   If the config option is provided, then all the other global options
   are ignored and the json file is used instead.
`

var (
	cfg       config.Options
	logCloser io.Closer
)

func main() {
	app := cli.NewApp()
	app.Name = "streamkeeper"
	app.Usage = "manage the livestreamer GUI config and quality cache database"
	app.UsageText = usageText
	app.HelpName = "streamkeeper"
	app.Version = Version
	app.Authors = []cli.Author{
		cli.Author{
			Name:  "Chris Pikul",
			Email: "chris-pikul@gmail.com",
		},
	}

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "configuration JSON `FILE` to use instead of options (empty = no config)",
		},
		cli.StringFlag{
			Name:  "db, d",
			Usage: "path to SQLite database `FILE`",
			Value: config.DefaultOptions.DBFile,
		},
		cli.UintFlag{
			Name:  "cache-sweep",
			Usage: "sweep expired cache entries every `MINUTES` while watching (0 disables)",
			Value: config.DefaultOptions.CacheSweep,
		},
		cli.StringFlag{
			Name:  "log, l",
			Usage: "`FILE` to append logs to (empty only writes to stderr)",
			Value: config.DefaultOptions.Logging.Path,
		},
		cli.StringFlag{
			Name:  "log-level, L",
			Usage: "logging `LEVEL` to use options are [DEBUG|INFO|WARN|ERROR]",
			Value: config.DefaultOptions.Logging.Level,
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "logging `FORMAT` to use options are [TEXT|JSON]",
			Value: config.DefaultOptions.Logging.Format,
		},
	}

	app.Before = initialize
	app.After = func(c *cli.Context) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	}

	app.Commands = []cli.Command{
		cli.Command{
			Name:   "info",
			Usage:  "show the database file and schema versions",
			Action: runInfo,
		},
		cli.Command{
			Name:   "migrate",
			Usage:  "upgrade the database schema to this build's version",
			Action: runMigrate,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "yes, y",
					Usage: "do not ask for confirmation",
				},
				cli.BoolFlag{
					Name:  "no-backup",
					Usage: "skip the backup taken before migrating",
				},
			},
		},
		cli.Command{
			Name:   "backup",
			Usage:  "copy the database file next to itself with a timestamp suffix",
			Action: runBackup,
		},
		cli.Command{
			Name:  "config",
			Usage: "read and write settings",
			Subcommands: []cli.Command{
				cli.Command{
					Name:   "list",
					Usage:  "list every setting",
					Action: runConfigList,
				},
				cli.Command{
					Name:      "get",
					Usage:     "print a setting",
					ArgsUsage: "NAME",
					Action:    runConfigGet,
				},
				cli.Command{
					Name:      "set",
					Usage:     "write a setting",
					ArgsUsage: "NAME VALUE",
					Action:    runConfigSet,
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "int, i",
							Usage: "store VALUE as an integer",
						},
					},
				},
			},
		},
		cli.Command{
			Name:  "streamers",
			Usage: "list and add streamers",
			Subcommands: []cli.Command{
				cli.Command{
					Name:   "list",
					Usage:  "list streamers by name",
					Action: runStreamersList,
				},
				cli.Command{
					Name:      "add",
					Usage:     "add a streamer",
					ArgsUsage: "NAME URL ICON",
					Action:    runStreamersAdd,
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "favorite, f",
							Usage: "make it the favorite streamer",
						},
					},
				},
				cli.Command{
					Name:      "favorite",
					Usage:     "make a streamer the favorite",
					ArgsUsage: "NAME",
					Action:    runStreamersFavorite,
				},
			},
		},
		cli.Command{
			Name:  "channels",
			Usage: "manage the channels of a streamer",
			Subcommands: []cli.Command{
				cli.Command{
					Name:      "list",
					Usage:     "list the channels of a streamer",
					ArgsUsage: "STREAMER",
					Action:    runChannelsList,
				},
				cli.Command{
					Name:      "add",
					Usage:     "add a channel",
					ArgsUsage: "STREAMER NAME URL",
					Action:    runChannelsAdd,
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "favorite, f",
							Usage: "make it the streamer's favorite channel",
						},
					},
				},
				cli.Command{
					Name:      "edit",
					Usage:     "rename or re-point a channel",
					ArgsUsage: "STREAMER NAME NEW_NAME NEW_URL",
					Action:    runChannelsEdit,
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "favorite, f",
							Usage: "make it the streamer's favorite channel",
						},
					},
				},
				cli.Command{
					Name:      "delete",
					Usage:     "delete a channel and its cached qualities",
					ArgsUsage: "STREAMER NAME",
					Action:    runChannelsDelete,
				},
				cli.Command{
					Name:      "favorite",
					Usage:     "make a channel the streamer's favorite",
					ArgsUsage: "STREAMER NAME",
					Action:    runChannelsFavorite,
				},
			},
		},
		cli.Command{
			Name:  "cache",
			Usage: "inspect and clean the stream quality cache",
			Subcommands: []cli.Command{
				cli.Command{
					Name:      "get",
					Usage:     "print the cached qualities of a channel that have not expired",
					ArgsUsage: "STREAMER CHANNEL",
					Action:    runCacheGet,
				},
				cli.Command{
					Name:      "add",
					Usage:     "record probed qualities of a channel",
					ArgsUsage: "STREAMER CHANNEL QUALITY...",
					Action:    runCacheAdd,
				},
				cli.Command{
					Name:      "clean",
					Usage:     "remove expired qualities, of one channel when STREAMER and CHANNEL are given",
					ArgsUsage: "[STREAMER CHANNEL]",
					Action:    runCacheClean,
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "all, a",
							Usage: "remove entries whether they expired or not",
						},
					},
				},
			},
		},
		cli.Command{
			Name:   "watch",
			Usage:  "keep the database open and sweep expired cache entries until interrupted",
			Action: runWatch,
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

//common initialization procedures
func initialize(c *cli.Context) error {
	var err error

	cfg, err = config.NewOptions(nil, c.GlobalString("config"), c)
	if err != nil {
		return fmt.Errorf("failed to parse configuration options; error = %s", err.Error())
	}

	logCloser, err = log.Initialize(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to start due to logging issue; error = %s", err.Error())
	}
	log.Debug("initialized logging")

	return nil
}

//openStore opens the database and refuses to continue on an outdated
//schema unless allowOutdated is set
func openStore(allowOutdated bool) (*db.Store, error) {
	s, err := db.Open(cfg.DBFile, db.SchemaVersion)
	if err != nil {
		log.Err("failed to open database %s", cfg.DBFile, err)
		return nil, err
	}

	if allowOutdated {
		return s, nil
	}

	needed, err := s.IsMigrationNeeded()
	if err != nil {
		s.Close()
		return nil, err
	}
	if needed {
		s.Close()
		return nil, fmt.Errorf("database %s uses an older schema, run the migrate command first", cfg.DBFile)
	}

	return s, nil
}

//withStore opens the store for the length of fn
func withStore(fn func(c *cli.Context, s *db.Store) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		s, err := openStore(false)
		if err != nil {
			return err
		}
		defer s.Close()

		return fn(c, s)
	}
}

//requireArgs checks the positional argument count
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() != n {
		return fmt.Errorf("%s expects %d arguments: %s", c.Command.FullName(), n, c.Command.ArgsUsage)
	}
	return nil
}

func runInfo(c *cli.Context) error {
	s, err := openStore(true)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Version()
	if err != nil {
		return err
	}

	fmt.Printf("database: %s\n", s.Filename())
	fmt.Printf("schema version: %d (this build expects %d)\n", v, s.ExpectedVersion())
	if v < s.ExpectedVersion() {
		fmt.Println("a migration is available, run the migrate command")
	}
	return nil
}

func runMigrate(c *cli.Context) error {
	s, err := openStore(true)
	if err != nil {
		return err
	}
	defer s.Close()

	needed, err := s.IsMigrationNeeded()
	if err != nil {
		return err
	}
	if !needed {
		fmt.Println("database schema is up to date")
		return nil
	}

	v, err := s.Version()
	if err != nil {
		return err
	}

	if !c.Bool("yes") {
		ok, err := confirm(os.Stdin, os.Stdout, fmt.Sprintf("migrate database from version %d to %d?", v, s.ExpectedVersion()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("migration cancelled")
			return nil
		}
	}

	if !c.Bool("no-backup") {
		path, err := s.MakeBackup()
		if err != nil {
			return fmt.Errorf("backup before migrating failed, nothing was changed: %w", err)
		}
		fmt.Printf("backup written to %s\n", path)
	}

	if err := s.ExecuteMigration(); err != nil {
		log.Err("database migration failed", err)
		return err
	}

	fmt.Printf("database migrated to version %d\n", s.ExpectedVersion())
	return nil
}

//confirm asks a yes/no question, anything but y or yes is a no
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func runBackup(c *cli.Context) error {
	s, err := openStore(true)
	if err != nil {
		return err
	}
	defer s.Close()

	path, err := s.MakeBackup()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

var runConfigList = withStore(func(c *cli.Context, s *db.Store) error {
	entries, err := s.GetConfigValues()
	if err != nil {
		return err
	}

	for _, e := range entries {
		fmt.Printf("%s\t%s\t%s\n", e.Name, e.Value.Kind(), e.Value)
	}
	return nil
})

var runConfigGet = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	val, ok, err := s.GetConfigValue(c.Args().Get(0))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no setting named %s", c.Args().Get(0))
	}

	fmt.Println(val)
	return nil
})

var runConfigSet = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	val, err := parseValue(c.Args().Get(1), c.Bool("int"))
	if err != nil {
		return err
	}
	return s.SetConfigValue(c.Args().Get(0), val)
})

//parseValue turns command line text into a config value of the requested kind
func parseValue(raw string, asInt bool) (db.Value, error) {
	if !asInt {
		return db.TextValue(raw), nil
	}

	i, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return db.Value{}, fmt.Errorf("%q is not an integer", raw)
	}
	return db.IntValue(i), nil
}

var runStreamersList = withStore(func(c *cli.Context, s *db.Store) error {
	list, err := s.GetStreamers()
	if err != nil {
		return err
	}

	for _, st := range list {
		fmt.Printf("%s%s\t%s\t%s\n", favoriteMark(st.Favorite), st.Name, st.URL, st.Icon)
	}
	return nil
})

var runStreamersAdd = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}

	_, err := s.AddStreamer(c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.Bool("favorite"))
	return describe(err, "streamer %s", c.Args().Get(0))
})

var runStreamersFavorite = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return describe(s.SetFavoriteStreamer(c.Args().Get(0)), "streamer %s", c.Args().Get(0))
})

var runChannelsList = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}

	list, err := s.GetStreamerChannels(c.Args().Get(0))
	if err != nil {
		return err
	}

	for _, ch := range list {
		fmt.Printf("%s%s\t%s\n", favoriteMark(ch.Favorite), ch.Name, ch.URL)
	}
	return nil
})

var runChannelsAdd = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}

	args := c.Args()
	err := s.AddChannel(args.Get(0), args.Get(1), args.Get(2), c.Bool("favorite"))
	return describe(err, "channel %s of %s", args.Get(1), args.Get(0))
})

var runChannelsEdit = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 4); err != nil {
		return err
	}

	args := c.Args()
	err := s.UpdateChannel(args.Get(0), args.Get(1), args.Get(2), args.Get(3), c.Bool("favorite"))
	return describe(err, "channel %s of %s", args.Get(1), args.Get(0))
})

var runChannelsDelete = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	args := c.Args()
	return describe(s.DeleteChannel(args.Get(0), args.Get(1)), "channel %s of %s", args.Get(1), args.Get(0))
})

var runChannelsFavorite = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	args := c.Args()
	return describe(s.SetFavoriteChannel(args.Get(0), args.Get(1)), "channel %s of %s", args.Get(1), args.Get(0))
})

var runCacheGet = withStore(func(c *cli.Context, s *db.Store) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}

	names, err := s.GetQualityFromCache(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
})

var runCacheAdd = withStore(func(c *cli.Context, s *db.Store) error {
	if c.NArg() < 3 {
		return fmt.Errorf("%s expects at least 3 arguments: %s", c.Command.FullName(), c.Command.ArgsUsage)
	}

	args := c.Args()
	err := s.AddQualityToCache(args.Get(0), args.Get(1), args.Tail()[1:])
	return describe(err, "channel %s of %s", args.Get(1), args.Get(0))
})

var runCacheClean = withStore(func(c *cli.Context, s *db.Store) error {
	if c.NArg() != 0 && c.NArg() != 2 {
		return fmt.Errorf("%s expects no arguments or: %s", c.Command.FullName(), c.Command.ArgsUsage)
	}

	opts := db.CleanOptions{
		Streamer:        c.Args().Get(0),
		Channel:         c.Args().Get(1),
		IgnoreTimestamp: c.Bool("all"),
	}
	removed, err := s.CleanQualityCache(opts)
	if err != nil {
		return err
	}

	fmt.Printf("removed %d cached qualities (%s)\n", removed, opts.Mode())
	return nil
})

var runWatch = withStore(func(c *cli.Context, s *db.Store) error {
	if cfg.CacheSweep == 0 {
		return errors.New("cache sweeping is disabled, set --cache-sweep above 0")
	}

	j := janitor.New(s, time.Minute*time.Duration(cfg.CacheSweep))
	j.AddListener(func(evt janitor.Event) {
		fmt.Println(evt)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		blockUntilSignal()
		cancel()
	}()

	fmt.Printf("watching %s, sweeping every %d minutes\n", s.Filename(), cfg.CacheSweep)
	j.SweepNow()
	return j.Run(ctx)
})

//holds the calling goroutine until an interrupt from the OS
func blockUntilSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("closing due to interrupt")
}

//describe adds which record an absent-record or constraint error is about
func describe(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrNotFound):
		return fmt.Errorf("%s does not exist", fmt.Sprintf(format, args...))
	case errors.Is(err, db.ErrConstraintViolation):
		return fmt.Errorf("%s was rejected: %w", fmt.Sprintf(format, args...), err)
	}
	return err
}

func favoriteMark(favorite bool) string {
	if favorite {
		return "* "
	}
	return "  "
}
