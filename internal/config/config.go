package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/royale-backend/internal/engine"
	"github.com/DoyleJ11/royale-backend/internal/ring"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	RingConfigPath string
	Table          *ring.PhaseTable

	TickInterval   time.Duration
	DamageInterval time.Duration
	Retention      time.Duration

	ArenaCenter   ring.Point
	ArenaRadius   float64
	ArenaHalfSize float64
	MaxHealth     float64

	PlayerLimit int
	Defaults    engine.Settings
}

// Bounds is the square map, or zero bounds when no half size is set.
func (c Config) Bounds() ring.Bounds {
	if c.ArenaHalfSize <= 0 {
		return ring.Bounds{}
	}
	return ring.SquareBounds(c.ArenaCenter, c.ArenaHalfSize)
}

// Load reads .env files (a missing file is fine) and then the process
// environment. Every bad value is reported, not just the first.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var errs error
	r := reader{errs: &errs}

	c := Config{
		HTTPAddr:       r.str("HTTP_ADDR", ":8080"),
		DatabaseURL:    r.str("DATABASE_URL", ""),
		LogLevel:       r.str("LOG_LEVEL", "info"),
		LogFormat:      r.str("LOG_FORMAT", "json"),
		RingConfigPath: r.str("RING_CONFIG", ""),
		TickInterval:   r.duration("TICK_INTERVAL", 250*time.Millisecond),
		DamageInterval: r.duration("DAMAGE_INTERVAL", time.Second),
		Retention:      r.duration("MATCH_RETENTION", 5*time.Minute),
		ArenaCenter: ring.Point{
			X: r.float("ARENA_CENTER_X", 0),
			Z: r.float("ARENA_CENTER_Z", 0),
		},
		ArenaRadius:   r.float("ARENA_RADIUS", 1500),
		ArenaHalfSize: r.float("ARENA_HALF_SIZE", 2000),
		MaxHealth:     r.float("MAX_HEALTH", 20),
		PlayerLimit:   r.integer("MAX_PLAYERS_LIMIT", engine.DefaultPlayerLimit),
		Defaults: engine.Settings{
			MinPlayers:      r.integer("MIN_PLAYERS", 2),
			MaxPlayers:      r.integer("MAX_PLAYERS", 24),
			TeamSize:        r.integer("TEAM_SIZE", 3),
			TrackLastPlayer: r.boolean("TRACK_LAST_PLAYER", true),
		},
	}

	if c.TickInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("TICK_INTERVAL must be positive"))
	}
	if c.DamageInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("DAMAGE_INTERVAL must be positive"))
	}
	if c.PlayerLimit <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("MAX_PLAYERS_LIMIT must be positive"))
	}
	if err := c.Defaults.ValidateWithin(c.PlayerLimit); err != nil {
		errs = multierr.Append(errs, err)
	}

	if c.RingConfigPath != "" {
		t, err := ring.LoadPhaseTable(c.RingConfigPath)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		c.Table = t
	} else {
		c.Table = ring.DefaultTable()
	}
	if c.Table != nil {
		if err := c.Table.ValidateStart(c.ArenaRadius); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		return Config{}, &engine.ConfigurationError{Err: errs}
	}
	return c, nil
}

type reader struct {
	errs *error
}

func (r reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r reader) parse(key string, parse func(string) error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if err := parse(v); err != nil {
		*r.errs = multierr.Append(*r.errs, fmt.Errorf("%s=%q: %w", key, v, err))
	}
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = time.ParseDuration(v)
		return err
	})
	return out
}

func (r reader) float(key string, def float64) float64 {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseFloat(v, 64)
		return err
	})
	return out
}

func (r reader) integer(key string, def int) int {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.Atoi(v)
		return err
	})
	return out
}

func (r reader) boolean(key string, def bool) bool {
	out := def
	r.parse(key, func(v string) (err error) {
		out, err = strconv.ParseBool(v)
		return err
	})
	return out
}
