// Package config parses the flat option mapping passed to the widget into its
// immutable display and timing settings.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults.
const (
	DefaultDateFormat = "%Y.%m.%d %a"
	DefaultTimeFormat = "%H:%M"
	DefaultSeparator  = " 〈"
	DefaultInterval   = time.Minute
	DefaultLogLevel   = "debug"
)

// Recognized option keys.
const (
	KeyDateFormat     = "date_format"
	KeyTimeFormat     = "time_format"
	KeySeparator      = "separator"
	KeyIntervalUpdate = "interval_update"
	KeyLogLevel       = "log_level"
)

// ErrInvalidInterval is returned by Load if interval_update is not a positive
// number of seconds.
var ErrInvalidInterval = errors.New("invalid interval_update")

// Config contains the widget settings. It is created once by Load and must not
// be modified afterwards.
type Config struct {
	DateFormat string
	HasDate    bool
	TimeFormat string
	HasTime    bool
	Separator  string
	Interval   time.Duration
	LogEnabled bool
	LogLevel   string
}

// Default returns the configuration used when no options are set.
func Default() Config {
	return Config{
		DateFormat: DefaultDateFormat,
		HasDate:    true,
		TimeFormat: DefaultTimeFormat,
		HasTime:    true,
		Separator:  DefaultSeparator,
		Interval:   DefaultInterval,
		LogEnabled: false,
		LogLevel:   DefaultLogLevel,
	}
}

// Load builds a Config from raw options. Every field is set, either from the
// option or from its default.
//
// An empty date_format, time_format, or log_level disables the corresponding
// feature while keeping the default value. An absent date_format or
// time_format leaves it enabled; an absent log_level leaves logging disabled.
func Load(opts map[string]string) (Config, error) {
	c := Default()
	c.DateFormat, c.HasDate = toggle(opts, KeyDateFormat, DefaultDateFormat, true)
	c.TimeFormat, c.HasTime = toggle(opts, KeyTimeFormat, DefaultTimeFormat, true)
	c.LogLevel, c.LogEnabled = toggle(opts, KeyLogLevel, DefaultLogLevel, false)
	if v, ok := opts[KeySeparator]; ok {
		c.Separator = v
	}
	if v, ok := opts[KeyIntervalUpdate]; ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w %q: %w", ErrInvalidInterval, v, err)
		}
		c.Interval = d
	}
	return c, nil
}

// toggle resolves an option which is disabled by an empty value.
func toggle(opts map[string]string, key, def string, absent bool) (string, bool) {
	v, ok := opts[key]
	switch {
	case !ok:
		return def, absent
	case v == "":
		return def, false
	default:
		return v, true
	}
}

func parseSeconds(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, errors.New("must be a positive number of seconds")
	}
	ns := f * float64(time.Second)
	if ns >= math.MaxInt64 {
		return 0, errors.New("too large")
	}
	d := time.Duration(ns)
	if d <= 0 {
		return 0, errors.New("too small")
	}
	return d, nil
}

// String summarizes c for logging.
func (c Config) String() string {
	return fmt.Sprintf("date_format: %q (%t), time_format: %q (%t), separator: %q, interval_update: %s, log_level: %q (%t)",
		c.DateFormat, c.HasDate, c.TimeFormat, c.HasTime, c.Separator, c.Interval, c.LogLevel, c.LogEnabled)
}

// ReadFile reads a flat YAML mapping of options. Scalar values are kept as
// their literal text, so `interval_update: 30` and `interval_update: "30"` are
// equivalent. A key with no value is present with an empty value.
func ReadFile(name string) (map[string]string, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var opts map[string]string
	if err := yaml.Unmarshal(buf, &opts); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if opts == nil {
		opts = map[string]string{}
	}
	return opts, nil
}

// Merge returns a new mapping containing base overridden by the later maps.
func Merge(base map[string]string, overrides ...map[string]string) map[string]string {
	m := make(map[string]string, len(base))
	for k, v := range base {
		m[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			m[k] = v
		}
	}
	return m
}
