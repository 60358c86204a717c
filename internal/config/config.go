// Package config collects the service settings from defaults, an optional
// JSON file, the environment and the command line, in increasing priority.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddr           string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel          string        `env:"LOG_LEVEL" validate:"loglevel"`
	LogFile           string        `env:"LOG_FILE" validate:"omitempty,filepath"`
	FreePlanTodoLimit int           `env:"FREE_PLAN_TODO_LIMIT" validate:"gt=0"`
	TrustedSubnet     string        `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	CORSMaxAge        int           `env:"CORS_MAX_AGE" validate:"gte=0"`
	ConfigFile        string        `env:"CONFIG"`
}

// jsonConfig is the layout of the file named by CONFIG or -c.
type jsonConfig struct {
	RunAddr           string `json:"server_address"`
	LogLevel          string `json:"log_level"`
	LogFile           string `json:"log_file"`
	FreePlanTodoLimit int    `json:"free_plan_todo_limit"`
	TrustedSubnet     string `json:"trusted_subnet"`
	ShutdownTimeout   string `json:"shutdown_timeout"`
	CORSMaxAge        int    `json:"cors_max_age"`
}

var defaultConfig = Config{
	RunAddr:           ":8080",
	LogLevel:          "info",
	LogFile:           "",
	FreePlanTodoLimit: 10,
	TrustedSubnet:     "",
	ShutdownTimeout:   10 * time.Second,
	CORSMaxAge:        300,
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
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

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// applyDefaults fills every zero field of dst with the value from src.
func applyDefaults(dst *Config, src Config) {
	if dst.RunAddr == "" {
		dst.RunAddr = src.RunAddr
	}
	if dst.LogLevel == "" {
		dst.LogLevel = src.LogLevel
	}
	if dst.LogFile == "" {
		dst.LogFile = src.LogFile
	}
	if dst.FreePlanTodoLimit == 0 {
		dst.FreePlanTodoLimit = src.FreePlanTodoLimit
	}
	if dst.TrustedSubnet == "" {
		dst.TrustedSubnet = src.TrustedSubnet
	}
	if dst.ShutdownTimeout == 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
	if dst.CORSMaxAge == 0 {
		dst.CORSMaxAge = src.CORSMaxAge
	}
	if dst.ConfigFile == "" {
		dst.ConfigFile = src.ConfigFile
	}
}

func loadJSON(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fromFile jsonConfig
	if err := json.Unmarshal(raw, &fromFile); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	result := Config{
		RunAddr:           fromFile.RunAddr,
		LogLevel:          fromFile.LogLevel,
		LogFile:           fromFile.LogFile,
		FreePlanTodoLimit: fromFile.FreePlanTodoLimit,
		TrustedSubnet:     fromFile.TrustedSubnet,
		CORSMaxAge:        fromFile.CORSMaxAge,
	}
	if fromFile.ShutdownTimeout != "" {
		result.ShutdownTimeout, err = time.ParseDuration(fromFile.ShutdownTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse shutdown_timeout in %q: %w", path, err)
		}
	}

	return result, nil
}

func parseFlags(args []string) (Config, error) {
	var result Config

	flagSet := flag.NewFlagSet("todoplan", flag.ContinueOnError)
	flagSet.StringVar(&result.RunAddr, "a", "", "address and port to run server")
	flagSet.StringVar(&result.LogLevel, "l", "", "logger level")
	flagSet.StringVar(&result.LogFile, "f", "", "file to write rotated JSON logs to")
	flagSet.IntVar(&result.FreePlanTodoLimit, "q", 0, "number of todos a free plan user may keep")
	flagSet.StringVar(&result.TrustedSubnet, "t", "", "subnet in CIDR notation allowed to read internal stats")
	flagSet.StringVar(&result.ConfigFile, "c", "", "JSON configuration file")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}

	return result, nil
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs replaces os.Args[1:] as the command line to parse.
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	var fromFlags Config
	if !options.disableFlagsParsing {
		fromFlags, err = parseFlags(options.args)
		if err != nil {
			return nil, err
		}
	}

	var fromEnv Config
	err = env.Parse(&fromEnv)
	if err != nil {
		return nil, err
	}

	result := fromFlags
	applyDefaults(&result, fromEnv)

	fromJSON, err := loadJSON(result.ConfigFile)
	if err != nil {
		return nil, err
	}
	applyDefaults(&result, fromJSON)
	applyDefaults(&result, defaultConfig)

	if err := result.validate(); err != nil {
		return nil, err
	}

	return &result, nil
}
