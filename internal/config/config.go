package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/luhtfiimanal/stermcom"
	"github.com/luhtfiimanal/stermcom/history"
)

// Config captures runtime configuration for the application.
type Config struct {
	Device          string
	BaudRate        uint32
	History         bool
	HistoryPath     string
	MaxHistoryLines int
	ListPorts       bool
	ConfigFile      string
	Logging         Logging
	Args            []string
}

// Logging selects the log file and level; an empty FilePath discards logs.
type Logging struct {
	FilePath string
	Level    string
}

// fileConfig mirrors config.toml. Pointers tell unset keys from zero values.
type fileConfig struct {
	BaudRate        *uint32 `toml:"baud_rate"`
	History         *bool   `toml:"history"`
	HistoryFile     string  `toml:"history_file"`
	MaxHistoryLines *int    `toml:"max_history_lines"`
	LogFile         string  `toml:"log_file"`
	LogLevel        string  `toml:"log_level"`
}

const (
	envHome       = "HOME"
	envXDGConfig  = "XDG_CONFIG_HOME"
	envConfigFile = "STERMCOM_CONFIG"
	envLogFile    = "STERMCOM_LOG_FILE"
	envLogLevel   = "STERMCOM_LOG_LEVEL"
)

const (
	DefaultBaudRate = 9600
	HistoryFileName = ".stermcom_history"
)

var (
	// ErrUsage marks bad command lines; the caller prints Usage.
	ErrUsage = errors.New("usage error")
	// ErrNoHome is returned when history is on and HOME is not set.
	ErrNoHome = errors.New("fail to get the value of HOME")
	// ErrHelp is returned for --help.
	ErrHelp = pflag.ErrHelp
)

// Usage returns the one-line usage message for program.
func Usage(program string) string {
	return fmt.Sprintf("USAGE: %s [-h] [-b baud_rate] device_node", filepath.Base(program))
}

// LoadArgs parses configuration from CLI arguments, the environment given as
// KEY=value pairs and the TOML config file.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	flags := pflag.NewFlagSet("stermcom", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)

	baud := flags.Uint32P("baud", "b", DefaultBaudRate, "baud rate of the device")
	useHistory := flags.BoolP("history", "h", false, "record and browse submitted lines in ~/"+HistoryFileName)
	list := flags.BoolP("list", "l", false, "list serial ports and exit")
	configFile := flags.String("config", envOrDefault(env, envConfigFile, ""), "path to the TOML config file")
	logFile := flags.String("log-file", envOrDefault(env, envLogFile, ""), "path to the log file")
	logLevel := flags.String("log-level", envOrDefault(env, envLogLevel, ""), "log level (debug, info, warn, error)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Config{}, ErrHelp
		}
		return Config{}, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg := Config{
		BaudRate:        DefaultBaudRate,
		MaxHistoryLines: history.DefaultMaxLines,
		Args:            append([]string(nil), args...),
	}

	explicit := *configFile != ""
	path := *configFile
	if !explicit {
		path = defaultConfigPath(env)
	}
	fc, err := readFile(path, explicit)
	if err != nil {
		return Config{}, err
	}
	if fc.BaudRate != nil {
		cfg.BaudRate = *fc.BaudRate
	}
	if fc.History != nil {
		cfg.History = *fc.History
	}
	if fc.MaxHistoryLines != nil {
		if *fc.MaxHistoryLines <= 0 {
			return Config{}, fmt.Errorf("max_history_lines must be > 0 (got %d)", *fc.MaxHistoryLines)
		}
		cfg.MaxHistoryLines = *fc.MaxHistoryLines
	}
	cfg.ConfigFile = path
	cfg.Logging = Logging{FilePath: fc.LogFile, Level: fc.LogLevel}

	if flags.Changed("baud") {
		cfg.BaudRate = *baud
	}
	if flags.Changed("history") {
		cfg.History = *useHistory
	}
	if *logFile != "" {
		cfg.Logging.FilePath = *logFile
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	cfg.ListPorts = *list

	rest := flags.Args()
	switch {
	case len(rest) == 1:
		cfg.Device = rest[0]
	case len(rest) == 2 && !flags.Changed("baud"):
		// legacy form: baud_rate device_node
		rate, err := strconv.ParseUint(rest[0], 10, 32)
		if err != nil {
			return Config{}, fmt.Errorf("%w: incorrect baud_rate %q", ErrUsage, rest[0])
		}
		cfg.BaudRate = uint32(rate)
		cfg.Device = rest[1]
	case len(rest) == 0 && cfg.ListPorts:
	default:
		return Config{}, fmt.Errorf("%w: no device_node or too many arguments", ErrUsage)
	}

	if !stermcom.SupportedBaudRate(cfg.BaudRate) {
		return Config{}, fmt.Errorf("%w: %w: %d", ErrUsage, stermcom.ErrUnsupportedBaudRate, cfg.BaudRate)
	}

	if cfg.History {
		p, err := historyPath(env, fc.HistoryFile)
		if err != nil {
			return Config{}, err
		}
		cfg.HistoryPath = p
	}

	return cfg, nil
}

// historyPath resolves the history file. Relative names live in HOME.
func historyPath(env map[string]string, name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	home := strings.TrimSpace(env[envHome])
	if home == "" {
		return "", ErrNoHome
	}
	if name == "" {
		name = HistoryFileName
	}
	return filepath.Join(home, name), nil
}

func defaultConfigPath(env map[string]string) string {
	if dir := strings.TrimSpace(env[envXDGConfig]); dir != "" {
		return filepath.Join(dir, "stermcom", "config.toml")
	}
	if home := strings.TrimSpace(env[envHome]); home != "" {
		return filepath.Join(home, ".config", "stermcom", "config.toml")
	}
	return ""
}

// readFile decodes the TOML config at path. A missing file is only an error
// when it was asked for explicitly.
func readFile(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("failed to read config file: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fc, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return fc, nil
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}
