// Package config parses the server's command-line configuration: a single
// argument string (or argv tail) of space-separated key=value pairs. It
// generalizes vimsent-L3's loadEnv pattern (read a string, strconv it,
// fall back to a constant default) from environment variables to this
// key=value grammar.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vimsent/chessd/internal/logging"
)

const (
	DefaultPort       = 10001
	DefaultIP         = "any"
	unlimited         = -1
	DefaultLogLevel   = "info"
)

// Config holds the fully-resolved server configuration.
type Config struct {
	// IP is the bind address, or "any" to bind all interfaces.
	IP string
	// Port is the TCP listen port.
	Port int
	// MaxRooms bounds concurrently open rooms; unlimited is represented
	// the same way as in the wire grammar: a negative number.
	MaxRooms int
	// MaxPlayers bounds concurrently admitted sessions; unlimited is a
	// negative number.
	MaxPlayers int
	// LogLevel is the parsed minimum logging level.
	LogLevel logging.Level
}

// Default returns the configuration in effect when no arguments are given.
func Default() Config {
	return Config{
		IP:         DefaultIP,
		Port:       DefaultPort,
		MaxRooms:   unlimited,
		MaxPlayers: unlimited,
		LogLevel:   logging.ParseLevel(DefaultLogLevel),
	}
}

// Parse reads space-separated key=value tokens (e.g. from os.Args[1:]
// joined, or individual argv elements) and returns a resolved Config.
// Recognized keys: ip, port, rooms, players, log-level. Unknown keys are
// rejected, as are malformed values for known keys; the caller (main) is
// responsible for translating the returned error into a fatal exit.
func Parse(args []string) (Config, error) {
	cfg := Default()

	for _, tok := range tokenize(args) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok {
			return Config{}, fmt.Errorf("malformed argument %q: expected key=value", tok)
		}
		switch key {
		case "ip":
			if value == "" {
				return Config{}, fmt.Errorf("ip: empty value")
			}
			cfg.IP = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return Config{}, fmt.Errorf("port: invalid value %q", value)
			}
			cfg.Port = port
		case "rooms":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("rooms: invalid value %q", value)
			}
			cfg.MaxRooms = n
		case "players":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("players: invalid value %q", value)
			}
			cfg.MaxPlayers = n
		case "log-level":
			switch value {
			case "debug", "info", "warn", "warning", "error":
			default:
				return Config{}, fmt.Errorf("log-level: invalid value %q", value)
			}
			cfg.LogLevel = logging.ParseLevel(value)
		default:
			return Config{}, fmt.Errorf("unknown argument key %q", key)
		}
	}

	return cfg, nil
}

// tokenize splits the raw argv tail into individual key=value tokens,
// tolerating either one token per argv element (the normal case under a
// shell, "ip=any port=10001") or a single pre-joined string.
func tokenize(args []string) []string {
	var out []string
	for _, a := range args {
		for _, f := range strings.Fields(a) {
			out = append(out, f)
		}
	}
	return out
}

// Unlimited reports whether a configured limit (MaxRooms or MaxPlayers)
// means "no cap".
func Unlimited(limit int) bool {
	return limit < 0
}
