package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type AssistantConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type SecurityConfig struct {
	Method     SecurityMethod `toml:"method"`
	SSHKeyPath string         `toml:"ssh_key_path,omitempty"`
}

type OCRConfig struct {
	Language    string `toml:"language"`
	BatchPolicy string `toml:"batch_policy"`
}

type VoiceConfig struct {
	ModelURL         string `toml:"model_url"`
	ModelName        string `toml:"model_name"`
	SampleRate       int    `toml:"sample_rate"`
	CaptureCommand   string `toml:"capture_command"`
	MaxListenSeconds int    `toml:"max_listen_seconds"`
}

type SessionConfig struct {
	SendPolicy     string `toml:"send_policy"`
	HistoryEnabled bool   `toml:"history_enabled"`
}

type UserConfig struct {
	Assistant AssistantConfig `toml:"assistant"`
	Security  SecurityConfig  `toml:"security"`
	OCR       OCRConfig       `toml:"ocr"`
	Voice     VoiceConfig     `toml:"voice"`
	Session   SessionConfig   `toml:"session"`
}

// Config is the resolved runtime configuration. It is built once by Load and
// handed to each collaborator explicitly.
type Config struct {
	DataDirectory string
	Assistant     AssistantConfig
	Security      SecurityConfig
	OCR           OCRConfig
	Voice         VoiceConfig
	Session       SessionConfig

	// CredentialStore is attached once the store is loaded and is never
	// serialized.
	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// ModelsDir is where downloaded speech models are extracted.
func (c *Config) ModelsDir() string {
	return filepath.Join(c.DataDir(), "models")
}

// VoiceModelDir is the extracted speech model directory.
func (c *Config) VoiceModelDir() string {
	return filepath.Join(c.ModelsDir(), c.Voice.ModelName)
}

func (c *Config) AssistantTimeout() time.Duration {
	if c.Assistant.TimeoutSeconds <= 0 {
		return DefaultAssistantTimeout
	}
	return time.Duration(c.Assistant.TimeoutSeconds) * time.Second
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.Assistant = u.Assistant
	c.Security = u.Security
	c.OCR = u.OCR
	c.Voice = u.Voice
	c.Session = u.Session
	c.fillDefaults()
}

// fillDefaults replaces zero values left by partial config files.
func (c *Config) fillDefaults() {
	d := DefaultUserConfig()
	if c.Assistant.Provider == "" {
		c.Assistant.Provider = d.Assistant.Provider
	}
	if c.Assistant.Model == "" && c.Assistant.Provider == d.Assistant.Provider {
		c.Assistant.Model = d.Assistant.Model
	}
	if c.Assistant.TimeoutSeconds <= 0 {
		c.Assistant.TimeoutSeconds = d.Assistant.TimeoutSeconds
	}
	if c.Security.Method == "" {
		c.Security.Method = d.Security.Method
	}
	if c.OCR.Language == "" {
		c.OCR.Language = d.OCR.Language
	}
	if c.OCR.BatchPolicy == "" {
		c.OCR.BatchPolicy = d.OCR.BatchPolicy
	}
	if c.Voice.ModelURL == "" {
		c.Voice.ModelURL = d.Voice.ModelURL
	}
	if c.Voice.ModelName == "" {
		c.Voice.ModelName = d.Voice.ModelName
	}
	if c.Voice.SampleRate <= 0 {
		c.Voice.SampleRate = d.Voice.SampleRate
	}
	if c.Voice.CaptureCommand == "" {
		c.Voice.CaptureCommand = d.Voice.CaptureCommand
	}
	if c.Session.SendPolicy == "" {
		c.Session.SendPolicy = d.Session.SendPolicy
	}
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("BLAC_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if p := os.Getenv("BLAC_PROVIDER"); p != "" {
		c.Assistant.Provider = p
	}
	if m := os.Getenv("BLAC_MODEL"); m != "" {
		c.Assistant.Model = m
	}
}

func CheckDebug() bool {
	debug := os.Getenv("BLAC_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: prompts and recognized speech end up in here
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (BLAC_DEBUG=%s) ===", os.Getenv("BLAC_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Debugf writes to the debug log when it is enabled.
func Debugf(format string, args ...any) {
	if Debug && DebugLog != nil {
		DebugLog.Printf(format, args...)
	}
}

func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if dataDir := os.Getenv("BLAC_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Default returns a Config with every default applied. No file is read or
// written.
func Default(dataDir string) *Config {
	c := &Config{DataDirectory: dataDir}
	c.applyUserConfig(DefaultUserConfig())
	return c
}
