package database

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

// Preference keys
const (
	PrefTheme            = "theme"
	PrefTimerDuration    = "custom-timer-duration"
	PrefSkinTone         = "skin-tone"
	PrefCumulativeVoting = "cumulative-voting"
	PrefSession          = "session"
	PrefUser             = "user"
)

var (
	ErrUnknownPreference = errors.New("database: unknown preference")
	ErrInvalidPreference = errors.New("database: invalid preference value")
)

type preference struct {
	def   string
	valid func(string) bool
	// secret values are never listed
	secret bool
}

func oneOf(values ...string) func(string) bool {
	return func(v string) bool {
		for _, allowed := range values {
			if v == allowed {
				return true
			}
		}
		return false
	}
}

func anyValue(string) bool { return true }

var preferences = map[string]preference{
	PrefTheme:    {def: "auto", valid: oneOf("auto", "light", "dark")},
	PrefSkinTone: {def: "default", valid: oneOf("default", "light", "medium-light", "medium", "medium-dark", "dark")},
	PrefTimerDuration: {def: "3m", valid: func(v string) bool {
		d, err := time.ParseDuration(v)
		return err == nil && d > 0
	}},
	PrefCumulativeVoting: {def: "false", valid: func(v string) bool {
		_, err := strconv.ParseBool(v)
		return err == nil
	}},
	PrefSession: {valid: anyValue, secret: true},
	PrefUser:    {valid: anyValue},
}

// Preferences are small per-user settings kept on disk between runs
type Preferences struct {
	d *diskv.Diskv
}

// OpenPreferences stores preferences as one file per key under dir
func OpenPreferences(dir string) (*Preferences, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}
	return &Preferences{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
		FilePerm:     0o600,
	})}, nil
}

// Get returns the stored value of key or its default
func (p *Preferences) Get(key string) (string, error) {
	pref, ok := preferences[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	if !p.d.Has(key) {
		return pref.def, nil
	}
	val, err := p.d.Read(key)
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return string(val), nil
}

// Set validates and stores value. An empty value restores the default.
func (p *Preferences) Set(key, value string) error {
	pref, ok := preferences[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreference, key)
	}
	if value == "" {
		if p.d.Has(key) {
			return p.d.Erase(key)
		}
		return nil
	}
	if !pref.valid(value) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidPreference, key, value)
	}
	if err := p.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// All returns every listable preference with defaults filled in
func (p *Preferences) All() (map[string]string, error) {
	out := make(map[string]string, len(preferences))
	for key, pref := range preferences {
		if pref.secret {
			continue
		}
		v, err := p.Get(key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Keys lists the known preference keys in order
func Keys() []string {
	keys := make([]string, 0, len(preferences))
	for k := range preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Preferences) Theme() string {
	v, _ := p.Get(PrefTheme)
	return v
}

func (p *Preferences) SkinTone() string {
	v, _ := p.Get(PrefSkinTone)
	return v
}

func (p *Preferences) TimerDuration() time.Duration {
	v, _ := p.Get(PrefTimerDuration)
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(preferences[PrefTimerDuration].def)
	}
	return d
}

// CumulativeVoting is the default for allowing several votes on one note
func (p *Preferences) CumulativeVoting() bool {
	v, _ := p.Get(PrefCumulativeVoting)
	b, _ := strconv.ParseBool(v)
	return b
}

// Session is the saved backend session token, empty when logged out
func (p *Preferences) Session() string {
	v, _ := p.Get(PrefSession)
	return v
}

func (p *Preferences) SetSession(token string) error {
	return p.Set(PrefSession, token)
}

func (p *Preferences) User() string {
	v, _ := p.Get(PrefUser)
	return v
}
