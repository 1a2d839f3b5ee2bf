package config

import "time"

const (
	DefaultProvider         = "gemini"
	DefaultModel            = "gemini-1.5-flash"
	DefaultAssistantTimeout = 30 * time.Second

	DefaultVoiceModelURL  = "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip"
	DefaultVoiceModelName = "vosk-model-small-en-us-0.15"
	DefaultSampleRate     = 16000
	DefaultCaptureCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"
)

// FallbackAPIKey is used when the user has not stored a key of their own.
// Release builds set it with -ldflags "-X blac/config.FallbackAPIKey=...".
var FallbackAPIKey = ""

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/blac",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Assistant: AssistantConfig{
			Provider:       DefaultProvider,
			Model:          DefaultModel,
			TimeoutSeconds: int(DefaultAssistantTimeout / time.Second),
		},
		Security: SecurityConfig{
			Method: SecurityMasterKey,
		},
		OCR: OCRConfig{
			Language:    "eng",
			BatchPolicy: "abort",
		},
		Voice: VoiceConfig{
			ModelURL:       DefaultVoiceModelURL,
			ModelName:      DefaultVoiceModelName,
			SampleRate:     DefaultSampleRate,
			CaptureCommand: DefaultCaptureCommand,
		},
		Session: SessionConfig{
			SendPolicy: "reject",
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# blac System Configuration
# Location: ~/.config/blac/settings.toml
# This file uses TOML format: https://toml.io

# Directory where credentials, models and history are stored
data_directory = "~/.local/share/blac"
`
}

func GenerateUserConfigTemplate() string {
	return `# blac User Configuration
# Location: <data_directory>/config.toml

[assistant]
# One of: gemini, openai, anthropic, ollama
provider = "gemini"
model = "gemini-1.5-flash"
# Leave empty for the provider's default endpoint
base_url = ""
# Requests running longer than this are reported as timed out
timeout_seconds = 30

[security]
# How the API key store is encrypted: "master_key" or "ssh_key"
method = "master_key"
ssh_key_path = ""

[ocr]
# Tesseract language code
language = "eng"
# What to do when one page of a multi-image batch fails: "abort" or "marker"
batch_policy = "abort"

[voice]
model_url = "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip"
model_name = "vosk-model-small-en-us-0.15"
sample_rate = 16000
# Command writing 16-bit little-endian mono PCM to stdout
capture_command = "arecord -q -f S16_LE -r 16000 -c 1 -t raw"
# 0 = listen until stopped
max_listen_seconds = 0

[session]
# What happens to a send while another is in flight: "reject" or "queue"
send_policy = "reject"
# Keep a local transcript archive of every session
history_enabled = false
`
}
