package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override configuration keys
const EnvPrefix = "DBMETRICS"

// RunConfig is built once at startup and only read afterwards
type RunConfig struct {
	Backend   string             `mapstructure:"backend"`
	Hostname  string             `mapstructure:"hostname"`
	HostGroup string             `mapstructure:"host-group"`
	DryRun    bool               `mapstructure:"dry-run"`
	Log       LogConfig          `mapstructure:"log"`
	Influx    InfluxConfig       `mapstructure:"influx"`
	Database  DbConnectionConfig `mapstructure:"database"`

	// Resolved after decoding
	Variant Variant `mapstructure:"-"`
	Target  string  `mapstructure:"-"`
}

// LogConfig defines logging parameters
type LogConfig struct {
	Level    string `mapstructure:"level"`  // debug, info, warn, error
	Format   string `mapstructure:"format"` // json, text
	FileName string `mapstructure:"file"`
}

// InfluxConfig defines the metrics store connection
type InfluxConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	DbName   string   `mapstructure:"dbname"`
	Timeout  Duration `mapstructure:"timeout"`
}

// DbConnectionConfig defines the monitored database connection
type DbConnectionConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"dbname"`
	Sid      string `mapstructure:"sid"`      // oracle only
	SslMode  string `mapstructure:"ssl-mode"` // postgres only
}

// Duration wrapper around time.Duration for proper YAML unmarshaling
type Duration struct {
	time.Duration
}

// UnmarshalText implements interface for parsing Duration
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// customDurationHook is a mapstructure hook for parsing time strings
func customDurationHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(Duration{}) {
			return data, nil
		}
		switch f.Kind() {
		case reflect.String:
			d, err := time.ParseDuration(data.(string))
			if err != nil {
				return nil, err
			}
			return Duration{Duration: d}, nil
		case reflect.Int64:
			if d, ok := data.(time.Duration); ok {
				return Duration{Duration: d}, nil
			}
		}
		return data, nil
	}
}

// Load builds the run configuration for program from command line args.
// Values are layered as: explicit flags, DBMETRICS_* environment
// variables (a .env file is loaded first if present), the optional YAML
// file given with -config, then flag defaults.
// It returns flag.ErrHelp when -h or -help was requested.
func Load(program string, args []string) (RunConfig, error) {
	// .env is optional, secrets may come from the environment directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile := lookupArg(args, "config"); configFile != "" {
		if err := readConfigFile(v, configFile); err != nil {
			return RunConfig{}, err
		}
	}

	variant, err := resolveVariant(v, program, args)
	if err != nil {
		if wantsHelp(args) {
			return RunConfig{}, flag.ErrHelp
		}
		return RunConfig{}, err
	}
	flags := variant.AllFlags()
	setDefaults(v, flags)

	flagSet := newFlagSet(program, flags)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return RunConfig{}, err
		}
		return RunConfig{}, translateFlagError(err)
	}
	if flagSet.NArg() > 0 {
		return RunConfig{}, fmt.Errorf("unrecognized arguments: %s", strings.Join(flagSet.Args(), " "))
	}

	byName := make(map[string]Flag, len(flags))
	for _, f := range flags {
		byName[f.Name] = f
	}
	flagSet.Visit(func(set *flag.Flag) {
		if key := byName[set.Name].Key; key != "" {
			v.Set(key, set.Value.String())
		}
	})

	if err := checkRequired(v, flags); err != nil {
		return RunConfig{}, err
	}

	var cfg RunConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(customDurationHook()),
	})
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return RunConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Backend = variant.Backend
	cfg.Variant = variant
	cfg.Target = v.GetString(variant.TargetKey)

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Usage writes the option list of the variant selected by program and args
func Usage(w io.Writer, program string, args []string) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	variant, err := resolveVariant(v, program, args)
	if err != nil {
		fmt.Fprintf(w, "Usage of %s: -backend %s [options]\n", program, strings.Join(Backends(), "|"))
		return
	}

	fmt.Fprintf(w, "Plugin for Icinga to check %s's metrics and export to InfluxDB\n\nUsage of %s:\n", variant.Label, program)
	flagSet := newFlagSet(program, variant.AllFlags())
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}

// readConfigFile reads a YAML file, expanding ${VAR} references first
func readConfigFile(v *viper.Viper, configPath string) error {
	rawContent, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	expandedContent := os.ExpandEnv(string(rawContent))

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(expandedContent)); err != nil {
		return fmt.Errorf("failed to parse config file '%s': %w", configPath, err)
	}
	return nil
}

// resolveVariant picks the backend: -backend flag, DBMETRICS_BACKEND,
// the config file, then the executable name
func resolveVariant(v *viper.Viper, program string, args []string) (Variant, error) {
	backend := lookupArg(args, "backend")
	if backend == "" {
		backend = v.GetString("backend")
	}
	if backend == "" {
		backend = BackendFromProgram(program)
	}
	if backend == "" {
		return Variant{}, fmt.Errorf("the following arguments are required: -backend")
	}
	return LookupVariant(backend)
}

// setDefaults registers every flag default so environment variables are
// picked up for all keys on decode
func setDefaults(v *viper.Viper, flags []Flag) {
	for _, f := range flags {
		if f.Key == "" {
			continue
		}
		switch d := f.Default.(type) {
		case time.Duration:
			v.SetDefault(f.Key, d.String())
		default:
			v.SetDefault(f.Key, d)
		}
	}
}

func newFlagSet(program string, flags []Flag) *flag.FlagSet {
	flagSet := flag.NewFlagSet(program, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	for _, f := range flags {
		switch f.kind {
		case kindInt:
			flagSet.Int(f.Name, f.Default.(int), f.Usage)
		case kindBool:
			flagSet.Bool(f.Name, f.Default.(bool), f.Usage)
		case kindDuration:
			flagSet.Duration(f.Name, f.Default.(time.Duration), f.Usage)
		default:
			flagSet.String(f.Name, f.Default.(string), f.Usage)
		}
	}
	return flagSet
}

// checkRequired lists every missing required option in declaration order
func checkRequired(v *viper.Viper, flags []Flag) error {
	var missing []string
	for _, f := range flags {
		if f.Required && strings.TrimSpace(v.GetString(f.Key)) == "" {
			missing = append(missing, "-"+f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("the following arguments are required: %s", strings.Join(missing, ", "))
	}
	return nil
}

// translateFlagError rewords flag package errors into the messages
// operators already know from the previous plugin generation
func translateFlagError(err error) error {
	message := err.Error()
	switch {
	case strings.HasPrefix(message, "flag provided but not defined: "):
		return fmt.Errorf("unrecognized arguments: %s", strings.TrimPrefix(message, "flag provided but not defined: "))
	case strings.HasPrefix(message, "flag needs an argument: "):
		return fmt.Errorf("argument %s: expected one argument", strings.TrimPrefix(message, "flag needs an argument: "))
	}
	return err
}

// lookupArg returns the value given to -name or --name in args, if any.
// Used for the options that must be known before the flag set exists.
func lookupArg(args []string, name string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return ""
		}
		trimmed := strings.TrimLeft(arg, "-")
		if trimmed == arg || len(arg)-len(trimmed) > 2 {
			continue
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1]
		}
		if value, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return value
		}
	}
	return ""
}

// wantsHelp reports whether args ask for -h or -help before any "--"
func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "--":
			return false
		case "-h", "-help", "--h", "--help":
			return true
		}
	}
	return false
}

// Validate runs all validation checks for loaded configuration
func (cfg *RunConfig) Validate() error {
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}
	if err := cfg.Influx.Validate(); err != nil {
		return fmt.Errorf("influx config validation failed: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database config validation failed: %w", err)
	}
	if cfg.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if cfg.HostGroup == "" {
		return fmt.Errorf("host_group is required")
	}
	return nil
}

func (c *LogConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return fmt.Errorf("invalid log level: '%s'", c.Level)
	}
	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, strings.ToLower(c.Format)) {
		return fmt.Errorf("invalid log format: '%s'", c.Format)
	}
	return nil
}

func (c *InfluxConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.DbName == "" {
		return fmt.Errorf("dbname is required")
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	return nil
}

func (c *DbConnectionConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	return nil
}

// InfluxURL returns the HTTP address of the metrics store
func (c InfluxConfig) InfluxURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
