package config

import (
	"strconv"
	"strings"
	"time"
)

// lookupFunc tem a forma de os.LookupEnv.
type lookupFunc func(string) (string, bool)

func firstOf(sources ...lookupFunc) lookupFunc {
	return func(k string) (string, bool) {
		for _, s := range sources {
			if v, ok := s(k); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
}

func (l lookupFunc) get(k string) string {
	v, _ := l(k)
	return strings.TrimSpace(v)
}

func (l lookupFunc) getenvDefault(k, def string) string {
	if v := l.get(k); v != "" {
		return v
	}
	return def
}

func (l lookupFunc) getenvIntDefault(k string, def int) int {
	v := l.get(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (l lookupFunc) getenvFloatDefault(k string, def float64) float64 {
	v := l.get(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (l lookupFunc) getenvBoolDefault(k string, def bool) bool {
	v := l.get(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (l lookupFunc) getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := l.get(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// getenvListDefault separa por vírgula e descarta itens vazios.
func (l lookupFunc) getenvListDefault(k string, def []string) []string {
	v := l.get(k)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
