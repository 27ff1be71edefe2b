// internal/config/config.go
//
// Process configuration.
// Responsibilities:
//   - Read settings from the environment (a .env file is loaded by main first).
//   - Fill defaults, placing the database under the XDG data directory.
//   - Load the level ladder: LEVELS_FILE, then $XDG_CONFIG_HOME/mathstrike/levels.json,
//     then the embedded default.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/robalobadob/mathstrike/internal/level"
)

const (
	appDir     = "mathstrike"
	levelsFile = appDir + "/levels.json"
	dbFile     = appDir + "/mathstrike.db"

	// DevJWTSecret signs admin tokens outside production when JWT_SECRET is unset.
	DevJWTSecret = "dev_secret_change_me"
)

// ErrMissingSecret is returned in production when JWT_SECRET is unset.
var ErrMissingSecret = errors.New("JWT_SECRET must be set when NODE_ENV=production")

// Config is everything main needs to wire the server.
type Config struct {
	Port              string
	LogLevel          string
	DBPath            string
	ClientOrigins     []string
	JWTSecret         string
	AdminPasswordHash string
	CookieName        string
	Production        bool
	AimDelay          time.Duration
	SessionTTL        time.Duration
	LevelsFile        string
}

// Load reads the environment.
func Load() (Config, error) {
	c := Config{
		Port:              getEnv("PORT", "5175"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBPath:            os.Getenv("DB_PATH"),
		ClientOrigins:     splitList(getEnv("CLIENT_ORIGIN", "http://localhost:5173")),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		CookieName:        getEnv("COOKIE_NAME", "mathstrike_admin"),
		Production:        os.Getenv("NODE_ENV") == "production",
		LevelsFile:        os.Getenv("LEVELS_FILE"),
	}

	if c.JWTSecret == "" {
		if c.Production {
			return Config{}, ErrMissingSecret
		}
		c.JWTSecret = DevJWTSecret
	}

	var err error
	if c.AimDelay, err = durationEnv("AIM_DELAY", time.Second); err != nil {
		return Config{}, err
	}
	if c.SessionTTL, err = durationEnv("SESSION_TTL", 2*time.Hour); err != nil {
		return Config{}, err
	}
	if c.AimDelay < 0 || c.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("AIM_DELAY must be >= 0 and SESSION_TTL > 0")
	}

	if c.DBPath == "" {
		if c.DBPath, err = xdg.DataFile(dbFile); err != nil {
			return Config{}, fmt.Errorf("locate database: %w", err)
		}
	}
	return c, nil
}

// LoadLevels returns the level ladder and where it came from.
func (c Config) LoadLevels() (level.Levels, string, error) {
	path := c.LevelsFile
	if path == "" {
		if found, err := xdg.SearchConfigFile(levelsFile); err == nil {
			path = found
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, fmt.Errorf("read levels: %w", err)
		}
		ls, err := level.Parse(data)
		if err != nil {
			return nil, path, fmt.Errorf("%s: %w", path, err)
		}
		return ls, path, nil
	}

	return level.Defaults(), "embedded", nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
