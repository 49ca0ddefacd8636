package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	SoundEnabledKey = "soundEnabled"
	ThemeKey        = "theme"
)

type Theme string

const (
	DarkTheme  Theme = "dark"
	LightTheme Theme = "light"
)

// Storage is a small persistent key/value store holding JSON encoded values.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Preferences holds the user's sound and theme choices.
// Reads always go through the storage so a restart sees the last write.
type Preferences struct {
	mu      sync.Mutex
	log     *slog.Logger
	storage Storage
	player  Player
}

func NewPreferences(log *slog.Logger, storage Storage, player Player) *Preferences {
	return &Preferences{log: log, storage: storage, player: player}
}

// SoundEnabled returns the last value written, or true when nothing
// readable was stored.
func (p *Preferences) SoundEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.soundEnabled()
}

func (p *Preferences) soundEnabled() bool {
	raw, ok, err := p.storage.Get(SoundEnabledKey)
	if err != nil {
		p.log.Warn("Unable to read sound preference", "error", err)
		return true
	}
	if !ok {
		return true
	}
	var enabled bool
	if err := json.Unmarshal([]byte(raw), &enabled); err != nil {
		p.log.Warn("Ignoring malformed sound preference", "value", raw, "error", err)
		return true
	}
	return enabled
}

// SetSoundEnabled persists the preference. The cue played depends on the
// state before the change: sound-off when sound was enabled, sound-on otherwise.
func (p *Preferences) SetSoundEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	previous := p.soundEnabled()
	raw, err := json.Marshal(enabled)
	if err != nil {
		return err
	}
	if err := p.storage.Set(SoundEnabledKey, string(raw)); err != nil {
		return fmt.Errorf("persist sound preference: %w", err)
	}
	if previous {
		p.player.Play(SoundOff)
	} else {
		p.player.Play(SoundOn)
	}
	return nil
}

// ToggleSound flips the sound preference and returns the new value.
func (p *Preferences) ToggleSound() (bool, error) {
	enabled := !p.SoundEnabled()
	return enabled, p.SetSoundEnabled(enabled)
}

// Theme returns the persisted theme, dark by default.
func (p *Preferences) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme()
}

func (p *Preferences) theme() Theme {
	raw, ok, err := p.storage.Get(ThemeKey)
	if err != nil || !ok {
		return DarkTheme
	}
	var theme Theme
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		return DarkTheme
	}
	if theme != LightTheme {
		return DarkTheme
	}
	return theme
}

// ToggleTheme switches between dark and light, clicking when sound is on.
func (p *Preferences) ToggleTheme() (Theme, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := LightTheme
	if p.theme() == LightTheme {
		next = DarkTheme
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return p.theme(), err
	}
	if err := p.storage.Set(ThemeKey, string(raw)); err != nil {
		return p.theme(), fmt.Errorf("persist theme: %w", err)
	}
	if p.soundEnabled() {
		p.player.Play(MouseClick)
	}
	return next, nil
}

// MemoryStorage keeps values for the lifetime of the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// FileStorage persists values as a single JSON object on disk.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStorage) load() (map[string]string, error) {
	values := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
