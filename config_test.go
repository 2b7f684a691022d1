package wtinspect

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		input string
		pairs []configPair
	}{
		{"", nil},
		{"create", []configPair{{"create", ""}}},
		{DefaultOpenConfig, []configPair{{"create", ""}, {"statistics", "(fast)"}}},
		{"create=false, cache_size=1GB", []configPair{{"create", "false"}, {"cache_size", "1GB"}}},
		{"log=(enabled=true,path=(a,b)),readonly", []configPair{{"log", "(enabled=true,path=(a,b))"}, {"readonly", ""}}},
		{`error_prefix="a,b",create`, []configPair{{"error_prefix", `"a,b"`}, {"create", ""}}},
		{",,create,,", []configPair{{"create", ""}}},
	}
	for _, tt := range tests {
		a, err := parseConfig(tt.input)
		if err != nil {
			t.Errorf("parseConfig(%q) failed: %v", tt.input, err)
			continue
		}
		if !reflect.DeepEqual(a, tt.pairs) {
			t.Errorf("parseConfig(%q) = %+v, wanted %+v", tt.input, a, tt.pairs)
		}
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	for _, input := range []string{"=x", "log=(a,b", `prefix="abc`} {
		_, err := parseConfig(input)
		if !errors.Is(err, ErrInvalidEngineConfig) {
			t.Errorf("parseConfig(%q) err = %v, wanted ErrInvalidEngineConfig", input, err)
		}
	}
}

func TestParseEngineConfig(t *testing.T) {
	cfg, err := parseEngineConfig("create,readonly=false,cache_size=2MB,statistics=(fast,clear)")
	if err != nil {
		t.Fatal(err)
	}
	e := engineConfig{Create: true, CacheSize: 2_000_000, Statistics: []string{"fast", "clear"}}
	if !reflect.DeepEqual(cfg, e) {
		t.Fatalf("got %+v, wanted %+v", cfg, e)
	}
	if !statisticsEnabled(cfg.Statistics) {
		t.Errorf("statisticsEnabled(%v) = false, wanted true", cfg.Statistics)
	}

	cfg = must(parseEngineConfig("statistics=(none)"))
	if cfg.Create || statisticsEnabled(cfg.Statistics) {
		t.Errorf("got %+v", cfg)
	}

	cfg = must(parseEngineConfig("cache_size=1GiB"))
	deepEqual(t, cfg.CacheSize, int64(1<<30))
}

func TestParseEngineConfig_Rejects(t *testing.T) {
	for _, input := range []string{
		"bogus=1",
		"create=maybe",
		"cache_size=lots",
		"statistics=(slow)",
	} {
		_, err := parseEngineConfig(input)
		if !errors.Is(err, ErrInvalidEngineConfig) {
			t.Errorf("parseEngineConfig(%q) err = %v, wanted ErrInvalidEngineConfig", input, err)
		}
	}
}

func TestStatisticsRequested(t *testing.T) {
	tests := []struct {
		config string
		on     bool
	}{
		{"", false},
		{"create", false},
		{DefaultOpenConfig, true},
		{"statistics=(none)", false},
		{"statistics=(all)", true},
		{"statistics=(clear)", false},
		{"statistics=(fast,clear)", true},
		{"statistics=()", false},
	}
	for _, tt := range tests {
		if a := statisticsRequested(tt.config); a != tt.on {
			t.Errorf("statisticsRequested(%q) = %v, wanted %v", tt.config, a, tt.on)
		}
	}
}
