package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/chris-pikul/go-streamkeeper/log"
	"github.com/urfave/cli"
)

//Options is a JSON serializable object holding the settings of
//the command line front end. The database file itself holds the
//application settings, these only say where to find it and how
//to report.
//
//The intended hierarchy is CLI options > File > Defaults
type Options struct {
	//DBFile path to the SQLite config database
	DBFile string `json:"dbFile"`

	//CacheSweep is the interval in minutes between cache sweeps
	//while the watch command runs. Zero disables sweeping
	CacheSweep uint `json:"cacheSweep"`

	//Logging holds the options settings for logging operations
	Logging log.Options `json:"logging"`
}

//DefaultOptions contains the preset default options
var DefaultOptions = Options{
	DBFile:     "./livestreamer-gui.sqlite",
	CacheSweep: 5,
	Logging:    log.DefaultOptions,
}

//ErrOptionsDBFile validation error for an empty database path
var ErrOptionsDBFile = errors.New("database file path must not be empty")

//Equals returns true if the supplied options matches these ones
func (o Options) Equals(opts Options) bool {
	return o.DBFile == opts.DBFile &&
		o.CacheSweep == opts.CacheSweep &&
		o.Logging.Equals(opts.Logging)
}

//Verify checks the Options fields for validity
func (o Options) Verify() error {
	if o.DBFile == "" {
		return ErrOptionsDBFile
	}

	return o.Logging.Verify()
}

//MergeFrom combines the fields from the supplied Options into
//this object and runs Verify on the result
func (o *Options) MergeFrom(opt Options) error {
	if opt.DBFile != "" {
		o.DBFile = opt.DBFile
	}

	o.CacheSweep = opt.CacheSweep

	if err := o.Logging.MergeFrom(opt.Logging); err != nil {
		return err
	}
	return o.Verify()
}

//ReadOptionsFromFile reads the JSON file on top of DefaultOptions
//and verifies the result
func ReadOptionsFromFile(filename string) (Options, error) {
	res := DefaultOptions

	file, err := ioutil.ReadFile(filename)
	if err != nil {
		return res, err
	}

	if err := json.Unmarshal(file, &res); err != nil {
		return res, fmt.Errorf("parsing %s: %w", filename, err)
	}

	return res, res.Verify()
}

//NewOptions compiles the Options object from the provided sources.
//Starts from defaults (or DefaultOptions when nil), merges the JSON
//file when filename is set, then applies the CLI flags of ctx.
func NewOptions(defaults *Options, filename string, ctx *cli.Context) (Options, error) {
	res := DefaultOptions
	if defaults != nil {
		res = *defaults
	}

	if len(filename) > 0 {
		file, err := ReadOptionsFromFile(filename)
		if err != nil {
			return res, err
		}
		if err := res.MergeFrom(file); err != nil {
			return res, err
		}
	}

	if ctx != nil {
		applyCLIOptions(ctx, &res)
	}

	return res, res.Verify()
}

//applyCLIOptions writes the global flags onto opts. When a config
//file was given the flags are ignored.
func applyCLIOptions(c *cli.Context, opts *Options) {
	if c == nil || opts == nil {
		return
	}

	if c.GlobalString("config") != "" {
		return
	}

	if str := c.GlobalString("db"); str != "" {
		opts.DBFile = str
	}

	if c.GlobalIsSet("cache-sweep") {
		opts.CacheSweep = c.GlobalUint("cache-sweep")
	}

	if str := c.GlobalString("log"); str != "" {
		opts.Logging.Path = str
	}

	if str := c.GlobalString("log-level"); str != "" {
		opts.Logging.Level = str
	}

	if str := c.GlobalString("log-format"); str != "" {
		opts.Logging.Format = str
	}
}
