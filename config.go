package wtinspect

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultOpenConfig is the configuration the inspector historically passed to
// the engine: create the home if missing, collect fast statistics.
const DefaultOpenConfig = "create,statistics=(fast)"

type configPair struct {
	Key   string
	Value string
}

// parseConfig splits a WiredTiger-style configuration string into key/value
// pairs. Values may be bare, double-quoted, or parenthesised (possibly
// nested); a key without a value has Value "".
func parseConfig(s string) ([]configPair, error) {
	var pairs []configPair
	i, n := 0, len(s)
	for i < n {
		for i < n && (s[i] == ',' || s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		start := i
		for i < n && s[i] != '=' && s[i] != ',' {
			i++
		}
		key := strings.TrimSpace(s[start:i])
		if key == "" {
			return nil, fmt.Errorf("%w: empty key at offset %d in %q", ErrInvalidEngineConfig, start, s)
		}
		if i >= n || s[i] == ',' {
			pairs = append(pairs, configPair{key, ""})
			continue
		}
		i++ // '='

		for i < n && s[i] == ' ' {
			i++
		}
		start = i
		switch {
		case i < n && s[i] == '(':
			depth := 0
			for ; i < n; i++ {
				if s[i] == '(' {
					depth++
				} else if s[i] == ')' {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("%w: unbalanced parentheses in value of %q", ErrInvalidEngineConfig, key)
			}
		case i < n && s[i] == '"':
			end := strings.IndexByte(s[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated string in value of %q", ErrInvalidEngineConfig, key)
			}
			i += end + 2
		default:
			for i < n && s[i] != ',' {
				i++
			}
		}
		pairs = append(pairs, configPair{key, strings.TrimSpace(s[start:i])})
	}
	return pairs, nil
}

func unparen(v string) string {
	if len(v) >= 2 && v[0] == '(' && v[len(v)-1] == ')' {
		return v[1 : len(v)-1]
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return v[1 : len(v)-1]
	}
	return v
}

func parseConfigBool(key, v string) (bool, error) {
	switch v {
	case "", "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s=%s is not a boolean", ErrInvalidEngineConfig, key, v)
}

// engineConfig is the subset of open configuration understood by the
// key-value backed drivers.
type engineConfig struct {
	Create     bool
	ReadOnly   bool
	CacheSize  int64
	Statistics []string
}

var statisticsModes = map[string]bool{
	"none":       true,
	"fast":       true,
	"all":        true,
	"clear":      true,
	"cache_walk": true,
	"tree_walk":  true,
}

func parseEngineConfig(s string) (engineConfig, error) {
	var cfg engineConfig
	pairs, err := parseConfig(s)
	if err != nil {
		return cfg, err
	}
	for _, p := range pairs {
		switch p.Key {
		case "create":
			cfg.Create, err = parseConfigBool(p.Key, p.Value)
		case "readonly":
			cfg.ReadOnly, err = parseConfigBool(p.Key, p.Value)
		case "cache_size":
			var size uint64
			size, err = humanize.ParseBytes(unparen(p.Value))
			if err != nil {
				err = fmt.Errorf("%w: cache_size=%s: %v", ErrInvalidEngineConfig, p.Value, err)
			}
			cfg.CacheSize = int64(size)
		case "statistics":
			cfg.Statistics = nil
			for _, mode := range splitStatisticsModes(p.Value) {
				if !statisticsModes[mode] {
					return cfg, fmt.Errorf("%w: unknown statistics mode %q", ErrInvalidEngineConfig, mode)
				}
				cfg.Statistics = append(cfg.Statistics, mode)
			}
		default:
			return cfg, fmt.Errorf("%w: unknown key %q", ErrInvalidEngineConfig, p.Key)
		}
		if err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// statisticsEnabled reports whether a statistics=(...) mode list turns
// statistics collection on. clear alone only resets counters.
func statisticsEnabled(modes []string) bool {
	for _, mode := range modes {
		if mode != "none" && mode != "clear" && mode != "" {
			return true
		}
	}
	return false
}

func splitStatisticsModes(value string) []string {
	var modes []string
	for _, mode := range strings.Split(unparen(value), ",") {
		modes = append(modes, strings.TrimSpace(mode))
	}
	return modes
}
