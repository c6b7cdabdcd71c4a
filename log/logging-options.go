package log

import "errors"

const (
	//LevelDebug shows everything, including SQL housekeeping and cache sweeps
	LevelDebug = "DEBUG"
	//LevelInfo shows store lifecycle events such as migrations and backups
	LevelInfo = "INFO"
	//LevelWarn only shows recovered problems and failures
	LevelWarn = "WARN"
	//LevelError only shows failures
	LevelError = "ERROR"
)

const (
	//FormatText writes human readable lines
	FormatText = "TEXT"
	//FormatJSON writes one JSON object per line
	FormatJSON = "JSON"
)

//Options holds the configuration settings
//for the logging operations. This is JSON serializable
//so it can live in the application config file.
type Options struct {
	//Path holds the file path to append logs to.
	//If empty only STDERR is used
	Path string `json:"path"`

	//Level sets the minimum level that is written.
	//One of DEBUG,INFO,WARN,ERROR
	Level string `json:"level"`

	//Format selects the line format, TEXT or JSON
	Format string `json:"format"`
}

//DefaultOptions holds the default options
var DefaultOptions = Options{
	Path:   "",
	Level:  LevelInfo,
	Format: FormatText,
}

var (
	//ErrOptionLevel the level field is not one of the known levels
	ErrOptionLevel = errors.New("invalid logging level option provided")

	//ErrOptionFormat the format field is not one of the known formats
	ErrOptionFormat = errors.New("invalid logging format option provided")
)

//Equals returns true if this object equals the provided one
func (o Options) Equals(opt Options) bool {
	return o == opt
}

//Verify confirms that all the options are valid
func (o Options) Verify() error {
	switch o.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return ErrOptionLevel
	}

	if o.Format != FormatText && o.Format != FormatJSON {
		return ErrOptionFormat
	}

	return nil
}

//MergeFrom combines the values from the supplied Options
//into these ones, only overriding fields that are set on opt.
//Returns the validation error of the result, if any.
func (o *Options) MergeFrom(opt Options) error {
	if len(opt.Path) != 0 {
		o.Path = opt.Path
	}

	if opt.Level != "" {
		o.Level = opt.Level
	}

	if opt.Format != "" {
		o.Format = opt.Format
	}

	return o.Verify()
}

//CombineOptions merges each of opts, in order, on top of DefaultOptions.
//The first validation error stops the merge and is returned.
func CombineOptions(opts ...Options) (Options, error) {
	res := DefaultOptions

	for _, opt := range opts {
		if err := res.MergeFrom(opt); err != nil {
			return res, err
		}
	}

	return res, nil
}
