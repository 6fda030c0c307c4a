// Package config provides Viper-based configuration loading for the arena server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/geom"
	"github.com/cory-johannsen/arena/internal/game/match"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns result persistence on. Matches still run without it.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ArenaConfig holds the arena box dimensions.
type ArenaConfig struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
	Depth  float64 `mapstructure:"depth"`
}

// MatchConfig holds match pacing and stalemate settings.
type MatchConfig struct {
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	Countdown          time.Duration `mapstructure:"countdown"`
	StalemateWarnAfter time.Duration `mapstructure:"stalemate_warn_after"`
	SuddenDeathAfter   time.Duration `mapstructure:"sudden_death_after"`
	MaxFightDuration   time.Duration `mapstructure:"max_fight_duration"`
	WallClockLimit     time.Duration `mapstructure:"wall_clock_limit"`
	SpawnSeparation    float64       `mapstructure:"spawn_separation"`
	// Seed fixes the first match's seed; 0 draws a fresh seed per match.
	Seed uint64 `mapstructure:"seed"`
	// TuningFile optionally overrides combat tuning constants.
	TuningFile string `mapstructure:"tuning_file"`
	// GenomeDir holds the roster of genome YAML files.
	GenomeDir string `mapstructure:"genome_dir"`
	// Concurrent is how many matches the server keeps running at once.
	Concurrent int `mapstructure:"concurrent"`
	// Intermission is the pause between back-to-back matches.
	Intermission time.Duration `mapstructure:"intermission"`
}

// GameServerConfig holds the spectator service listen settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// WSHost is the bind address for the websocket hub.
	WSHost string `mapstructure:"ws_host"`
	// WSPort is the TCP port for the websocket hub.
	WSPort int `mapstructure:"ws_port"`
	// WatchBuffer is the per-spectator frame buffer.
	WatchBuffer int `mapstructure:"watch_buffer"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// WSAddr returns the "host:port" websocket address.
func (g GameServerConfig) WSAddr() string {
	return fmt.Sprintf("%s:%d", g.WSHost, g.WSPort)
}

// AdminConfig holds administrative access settings.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin token. Empty disables admin calls.
	TokenHash string `mapstructure:"token_hash"`
}

// RulesConfig holds rule script settings.
type RulesConfig struct {
	// ScriptDir holds *.lua rule scripts. Empty uses the built-in rules.
	ScriptDir        string `mapstructure:"script_dir"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// ReplayConfig holds replay recording settings.
type ReplayConfig struct {
	// Dir receives one replay file per match. Empty disables recording.
	Dir string `mapstructure:"dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Arena      ArenaConfig      `mapstructure:"arena"`
	Match      MatchConfig      `mapstructure:"match"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Rules      RulesConfig      `mapstructure:"rules"`
	Replay     ReplayConfig     `mapstructure:"replay"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateArena(c.Arena),
		validateMatch(c.Match),
		validateDatabase(c.Database),
		validateGameServer(c.GameServer),
		validateRules(c.Rules),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// MatchSettings combines the arena and match sections with tuning.
//
// Postcondition: tuning.TickInterval is replaced by match.tick_interval.
func (c Config) MatchSettings(tuning combat.Tuning) match.Settings {
	tuning.TickInterval = c.Match.TickInterval
	return match.Settings{
		Arena:              geom.Arena{Width: c.Arena.Width, Height: c.Arena.Height, Depth: c.Arena.Depth},
		Tuning:             tuning,
		Countdown:          c.Match.Countdown,
		StalemateWarnAfter: c.Match.StalemateWarnAfter,
		SuddenDeathAfter:   c.Match.SuddenDeathAfter,
		MaxFightDuration:   c.Match.MaxFightDuration,
		WallClockLimit:     c.Match.WallClockLimit,
		SpawnSeparation:    c.Match.SpawnSeparation,
	}
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}

func validateArena(a ArenaConfig) error {
	var errs []string
	if a.Width <= 0 {
		errs = append(errs, fmt.Sprintf("arena.width must be > 0, got %g", a.Width))
	}
	if a.Height <= 0 {
		errs = append(errs, fmt.Sprintf("arena.height must be > 0, got %g", a.Height))
	}
	if a.Depth <= 0 {
		errs = append(errs, fmt.Sprintf("arena.depth must be > 0, got %g", a.Depth))
	}
	return joinErrs(errs)
}

func validateMatch(m MatchConfig) error {
	var errs []string
	if m.TickInterval <= 0 {
		errs = append(errs, "match.tick_interval must be > 0")
	}
	if m.Countdown < 0 {
		errs = append(errs, "match.countdown must not be negative")
	}
	if m.StalemateWarnAfter <= 0 {
		errs = append(errs, "match.stalemate_warn_after must be > 0")
	}
	if m.SuddenDeathAfter < m.StalemateWarnAfter {
		errs = append(errs, "match.sudden_death_after must be >= match.stalemate_warn_after")
	}
	if m.MaxFightDuration <= m.SuddenDeathAfter {
		errs = append(errs, "match.max_fight_duration must be > match.sudden_death_after")
	}
	if m.WallClockLimit < 0 {
		errs = append(errs, "match.wall_clock_limit must not be negative")
	}
	if m.SpawnSeparation <= 0 {
		errs = append(errs, fmt.Sprintf("match.spawn_separation must be > 0, got %g", m.SpawnSeparation))
	}
	if m.GenomeDir == "" {
		errs = append(errs, "match.genome_dir must not be empty")
	}
	if m.Concurrent < 1 {
		errs = append(errs, fmt.Sprintf("match.concurrent must be >= 1, got %d", m.Concurrent))
	}
	if m.Intermission < 0 {
		errs = append(errs, "match.intermission must not be negative")
	}
	return joinErrs(errs)
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joinErrs(errs)
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.WSHost == "" {
		errs = append(errs, "gameserver.ws_host must not be empty")
	}
	if g.WSPort < 1 || g.WSPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.ws_port must be 1-65535, got %d", g.WSPort))
	}
	if g.WSPort == g.GRPCPort && g.WSHost == g.GRPCHost {
		errs = append(errs, "gameserver.ws_port must differ from gameserver.grpc_port")
	}
	if g.WatchBuffer < 1 {
		errs = append(errs, fmt.Sprintf("gameserver.watch_buffer must be >= 1, got %d", g.WatchBuffer))
	}
	return joinErrs(errs)
}

func validateRules(r RulesConfig) error {
	if r.InstructionLimit < 0 {
		return fmt.Errorf("rules.instruction_limit must be >= 0, got %d", r.InstructionLimit)
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and ARENA_ environment
// overrides applied but no file read.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("arena.width", 400)
	v.SetDefault("arena.height", 200)
	v.SetDefault("arena.depth", 300)

	v.SetDefault("match.tick_interval", combat.DefaultTickPeriod.String())
	v.SetDefault("match.countdown", "3s")
	v.SetDefault("match.stalemate_warn_after", "10s")
	v.SetDefault("match.sudden_death_after", "30s")
	v.SetDefault("match.max_fight_duration", "3m")
	v.SetDefault("match.wall_clock_limit", "5m")
	v.SetDefault("match.spawn_separation", 200)
	v.SetDefault("match.seed", 0)
	v.SetDefault("match.tuning_file", "")
	v.SetDefault("match.genome_dir", "content/genomes")
	v.SetDefault("match.concurrent", 1)
	v.SetDefault("match.intermission", "5s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.ws_host", "0.0.0.0")
	v.SetDefault("gameserver.ws_port", 8080)
	v.SetDefault("gameserver.watch_buffer", 32)

	v.SetDefault("admin.token_hash", "")

	v.SetDefault("rules.script_dir", "")
	v.SetDefault("rules.instruction_limit", 100000)

	v.SetDefault("replay.dir", "")
}
