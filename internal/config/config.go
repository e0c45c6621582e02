// Package config handles the on-disk configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/audioscope/audioscope/internal/logger"
	"github.com/audioscope/audioscope/internal/trigger"
)

// TriggerRule is the config-file form of one MIDI trigger binding.
type TriggerRule struct {
	Kind    string `json:"kind" yaml:"kind"`
	Channel uint8  `json:"channel" yaml:"channel"`
	Key     uint8  `json:"key" yaml:"key"`
	Value   uint8  `json:"value" yaml:"value"`
	Match   string `json:"match,omitempty" yaml:"match,omitempty"`
	Action  string `json:"action" yaml:"action"`
}

// FocusConfig selects and tunes the focus backend.
type FocusConfig struct {
	// Backend is "x11", "static" or "none".
	Backend string `json:"backend" yaml:"backend"`
	// PollIntervalMs is the x11 poll period.
	PollIntervalMs int `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	// StaticPID is the pid reported by the static backend.
	StaticPID int32 `json:"static_pid,omitempty" yaml:"static_pid,omitempty"`
}

// MIDIConfig controls the trigger listener.
type MIDIConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Port     string        `json:"port,omitempty" yaml:"port,omitempty"`
	Triggers []TriggerRule `json:"triggers" yaml:"triggers"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int         `json:"server_port" yaml:"server_port"`
	LogLevel   string      `json:"log_level" yaml:"log_level"`
	Audio      AudioConfig `json:"audio" yaml:"audio"`
	Focus      FocusConfig `json:"focus" yaml:"focus"`
	MIDI       MIDIConfig  `json:"midi" yaml:"midi"`
}

// AudioConfig selects the audio system backend.
type AudioConfig struct {
	// Backend is "sim" for the scriptable in-memory system. Platform
	// backends register themselves under their own names.
	Backend string `json:"backend" yaml:"backend"`
}

// Bindings converts the configured trigger rules into table bindings,
// rejecting the whole set on the first malformed rule.
func (c *Config) Bindings() ([]trigger.Binding, error) {
	bindings := make([]trigger.Binding, 0, len(c.MIDI.Triggers))
	for i, rule := range c.MIDI.Triggers {
		kind, err := trigger.ParseKind(rule.Kind)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		match, err := trigger.ParseMatchType(rule.Match)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		action, err := trigger.ParseAction(rule.Action)
		if err != nil {
			return nil, fmt.Errorf("trigger %d: %w", i, err)
		}
		if rule.Channel > 15 {
			return nil, fmt.Errorf("trigger %d: channel %d out of range", i, rule.Channel)
		}
		if rule.Key > 127 || rule.Value > 127 {
			return nil, fmt.Errorf("trigger %d: key/value out of 7-bit range", i)
		}
		bindings = append(bindings, trigger.Binding{
			Kind:    kind,
			Channel: rule.Channel,
			Key:     rule.Key,
			Value:   rule.Value,
			Match:   match,
			Action:  action,
		})
	}
	return bindings, nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "audioscope")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
		configDir = filepath.Dir(configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("triggers", len(m.config.MIDI.Triggers)).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	return &Config{
		ServerPort: 8080,
		LogLevel:   "info",
		Audio: AudioConfig{
			Backend: "sim",
		},
		Focus: FocusConfig{
			Backend:        "x11",
			PollIntervalMs: 500,
		},
		MIDI: MIDIConfig{
			Enabled:  false,
			Triggers: []TriggerRule{},
		},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := m.getDefaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	cfg.MIDI.Triggers = append([]TriggerRule(nil), m.config.MIDI.Triggers...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Update replaces the configuration and persists it.
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Path returns the backing file path.
func (m *Manager) Path() string {
	return m.configPath
}
