package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parsed returns parse(value of name), or def when the variable is unset,
// blank or does not parse.
func parsed[T any](name string, def T, parse func(string) (T, error)) T {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func String(name, def string) string {
	return parsed(name, def, func(v string) (string, error) { return v, nil })
}

func Int(name string, def int) int { return parsed(name, def, strconv.Atoi) }

func Float(name string, def float64) float64 {
	return parsed(name, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func Bool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// Seconds reads an integer number of seconds.
func Seconds(name string, def time.Duration) time.Duration {
	n := Int(name, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// List splits a comma separated value, dropping empty entries.
func List(name string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil
	}
	out := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
