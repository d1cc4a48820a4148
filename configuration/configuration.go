package configuration

import (
	"flag"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/indexbind/errors"
)

// Configuration holds every setting of the store and of indexctl. Fields
// tagged yaml:"-" are only read from flags and the environment.
type Configuration struct {
	ConfigFile     string `usage:"YAML configuration file" yaml:"-"`
	StoragePath    string `usage:"SQLite database file, empty keeps everything in memory" yaml:"storage_path"`
	BTreeDegree    int    `usage:"degree of the in-memory ordered tree" yaml:"btree_degree"`
	MaxHandles     int    `usage:"maximum live handles, 0 means unlimited" yaml:"max_handles"`
	LogLevel       string `usage:"log level: debug | info | warn | error" yaml:"log_level"`
	LogDevelopment bool   `usage:"human readable development logging" yaml:"log_development"`

	List  string `usage:"list name to operate on" yaml:"-"`
	Group string `usage:"group name, scopes -list to -key within the group" yaml:"-"`
	Key   string `usage:"group key" yaml:"-"`
	Op    string `usage:"operation: get | last | size | add | pop | truncate | set | clear | dump" yaml:"-"`
	Value string `usage:"value for add and set" yaml:"-"`
	Pos   int64  `usage:"position for get and set, length for truncate" yaml:"-"`

	Interactive bool `usage:"interactive mode with TUI" yaml:"-"`
	ShowConfig  bool `usage:"print config" yaml:"-"`
	Version     bool `usage:"show version and exit" yaml:"-"`
}

// Default returns the configuration used when nothing is set: an in-memory
// database, no handle limit and info logging.
func Default() Configuration {
	return Configuration{
		StoragePath: "",
		BTreeDegree: 32,
		MaxHandles:  0,
		LogLevel:    "info",
		Op:          "dump",
	}
}

// LoadFile overlays the YAML file at path onto c. Fields absent from the
// file keep their current value.
func LoadFile(path string, c *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.PhaseConfig, errors.KindIO).
			Path(path).
			Detail("read config file").
			Cause(err).
			Build()
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path(path).
			Detail("parse config file").
			Cause(err).
			Build()
	}
	applyDefaults(c)
	return nil
}

// LoadFileUnderFlags overlays the YAML file at path onto c like LoadFile,
// then restores every flag set explicitly in fs, so the command line wins
// over the file and the file wins over defaults. The flags in fs must be
// bound to the fields of c.
func LoadFileUnderFlags(path string, c *Configuration, fs *flag.FlagSet) error {
	explicit := map[string]string{}
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := LoadFile(path, c); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(name).
				Detail("reapply flag").
				Cause(err).
				Build()
		}
	}
	return nil
}

func applyDefaults(c *Configuration) {
	if c.BTreeDegree <= 1 {
		c.BTreeDegree = 32
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate rejects values no component can run with.
func (c *Configuration) Validate() error {
	if c.MaxHandles < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "max_handles must not be negative")
	}
	if c.BTreeDegree < 2 {
		return errors.InvalidInput(errors.PhaseConfig, "btree_degree must be at least 2")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Configuration) level() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return lvl, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("log_level").
			Value(c.LogLevel).
			Detail("unknown log level %q", c.LogLevel).
			Build()
	}
	return lvl, nil
}

// Logger builds the process logger described by c.
func (c *Configuration) Logger() (*zap.Logger, error) {
	lvl, err := c.level()
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.LogDevelopment {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return logger, nil
}
