// Package config loads the server configuration. Values are layered with
// the priority CLI flags > environment > JSON config file > defaults,
// and the result is validated before use.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	DataDir             string        `env:"DATA_DIR" json:"data_dir" validate:"datadir"`
	StaticDir           string        `env:"STATIC_DIR" json:"static_dir"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"min=0"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir"`
	AllowedOrigins      []string      `env:"ALLOWED_ORIGINS" envSeparator:"," json:"allowed_origins" validate:"min=1"`
	TrustedSubnet       string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	PasswordHashCost    int           `env:"PASSWORD_HASH_COST" json:"password_hash_cost" validate:"omitempty,min=4,max=31"`
	CorruptDataPolicy   string        `env:"CORRUPT_DATA_POLICY" json:"corrupt_data_policy" validate:"oneof=empty fail"`
	ConfigFile          string        `env:"CONFIG" json:"-"`
}

var defaultConfig = Config{
	RunAddr:             ":3000",
	LogLevel:            "info",
	DataDir:             "data",
	StaticDir:           ".",
	DatabaseDSN:         "",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/userauth/migrations",
	AllowedOrigins:      []string{"*"},
	TrustedSubnet:       "",
	PasswordHashCost:    0,
	CorruptDataPolicy:   "empty",
}

func validateDataDir(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return os.IsNotExist(err)
	}

	return info.IsDir()
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (values *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("datadir", validateDataDir)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command line; used by tests.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses the given arguments instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
	values.AllowedOrigins = append([]string(nil), defaults.AllowedOrigins...)
}

func (values *Config) applyJSONFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(data, values); err != nil {
		return fmt.Errorf("in internal/config/config.go/applyJSONFile(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

type commandLine struct {
	values Config
	origin string
	set    map[string]bool
}

func parseCommandLine(args []string) (*commandLine, error) {
	cli := &commandLine{set: map[string]bool{}}

	flagSet := flag.NewFlagSet("userauth", flag.ContinueOnError)
	flagSet.StringVar(&cli.values.RunAddr, "a", defaultConfig.RunAddr, "address and port to run server")
	flagSet.StringVar(&cli.values.LogLevel, "l", defaultConfig.LogLevel, "logger level")
	flagSet.StringVar(&cli.values.DataDir, "f", defaultConfig.DataDir, "directory with the JSON collection files")
	flagSet.StringVar(&cli.values.StaticDir, "s", defaultConfig.StaticDir, "directory with the static client files")
	flagSet.StringVar(&cli.values.DatabaseDSN, "d", defaultConfig.DatabaseDSN, "a string with the database connection details")
	flagSet.StringVar(&cli.values.TrustedSubnet, "t", defaultConfig.TrustedSubnet, "trusted subnet in CIDR notation")
	flagSet.StringVar(&cli.values.CorruptDataPolicy, "p", defaultConfig.CorruptDataPolicy, "what to do with unreadable user data: empty or fail")
	flagSet.StringVar(&cli.origin, "o", "", "allowed CORS origin")
	flagSet.StringVar(&cli.values.ConfigFile, "c", "", "JSON config file")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	flagSet.Visit(func(f *flag.Flag) {
		cli.set[f.Name] = true
	})

	return cli, nil
}

func (values *Config) applyCommandLine(cli *commandLine) {
	if cli.set["a"] {
		values.RunAddr = cli.values.RunAddr
	}
	if cli.set["l"] {
		values.LogLevel = cli.values.LogLevel
	}
	if cli.set["f"] {
		values.DataDir = cli.values.DataDir
	}
	if cli.set["s"] {
		values.StaticDir = cli.values.StaticDir
	}
	if cli.set["d"] {
		values.DatabaseDSN = cli.values.DatabaseDSN
	}
	if cli.set["t"] {
		values.TrustedSubnet = cli.values.TrustedSubnet
	}
	if cli.set["p"] {
		values.CorruptDataPolicy = cli.values.CorruptDataPolicy
	}
	if cli.set["o"] {
		values.AllowedOrigins = []string{cli.origin}
	}
}

// New builds and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.args == nil && len(os.Args) > 1 {
		options.args = os.Args[1:]
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	cli := &commandLine{set: map[string]bool{}}
	if !options.disableFlagsParsing {
		cli, err = parseCommandLine(options.args)
		if err != nil {
			return nil, err
		}
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	configFile := os.Getenv("CONFIG")
	if cli.set["c"] {
		configFile = cli.values.ConfigFile
	}
	if configFile != "" {
		if err := values.applyJSONFile(configFile); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(values); err != nil {
		return nil, err
	}

	values.applyCommandLine(cli)
	values.ConfigFile = configFile

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}
