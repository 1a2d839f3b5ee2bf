package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"blac/assistant"
	"blac/config"
	"blac/ocr"
	"blac/session"
	"blac/speech"
	"blac/storage"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	keys    *config.CredentialStore
	archive *storage.Archive
}

// newAssistant builds the backend client. Tests replace it.
var newAssistant = func(cfg *config.Config, keys *config.CredentialStore) session.Assistant {
	return assistant.NewClient(cfg, keys)
}

// readSecret prompts on the terminal without echo. Tests replace it.
var readSecret = func(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(b), nil
}

func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitDebugLog(cfg.DataDir())

	if providerFlag != "" {
		if !config.IsKnownProvider(providerFlag) {
			return nil, fmt.Errorf("unknown provider: %s", providerFlag)
		}
		if providerFlag != cfg.Assistant.Provider {
			cfg.Assistant.Model = ""
			cfg.Assistant.BaseURL = ""
		}
		cfg.Assistant.Provider = providerFlag
	}
	if modelFlag != "" {
		cfg.Assistant.Model = modelFlag
	}

	keys, err := openCredentials(cfg)
	if err != nil {
		return nil, err
	}

	config.Debugf("[CLI] provider=%s model=%s data=%s", cfg.Assistant.Provider, cfg.Assistant.Model, cfg.DataDir())
	return &app{cfg: cfg, keys: keys}, nil
}

// openCredentials loads the key store, asking for the SSH key passphrase
// first when the store is sealed with an encrypted SSH key.
func openCredentials(cfg *config.Config) (*config.CredentialStore, error) {
	store := config.NewCredentialStore(cfg.Security.Method, cfg.Security.SSHKeyPath)

	if cfg.Security.Method == config.SecuritySSHKey {
		keyPath := config.ExpandPath(cfg.Security.SSHKeyPath)
		encrypted, err := config.IsSSHKeyEncrypted(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		if encrypted {
			pass, err := readSecret(fmt.Sprintf("Passphrase for %s: ", keyPath))
			if err != nil {
				return nil, err
			}
			store.SetPassphrase(pass)
		}
	}

	if err := store.Load(cfg.DataDir()); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store
	return store, nil
}

func (a *app) openArchive() (*storage.Archive, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	archive, err := storage.OpenArchive(a.cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	a.archive = archive
	return archive, nil
}

func (a *app) close() {
	if a.archive != nil {
		a.archive.Close()
	}
}

// newSession wires the assistant, OCR, voice and history into a session.
// Missing optional engines leave the matching feature disabled.
func (a *app) newSession() (*session.Session, error) {
	opts := []session.Option{
		session.WithSendPolicy(session.ParseSendPolicy(a.cfg.Session.SendPolicy)),
	}

	if extractor, err := ocr.NewExtractorFromConfig(a.cfg); err == nil {
		opts = append(opts, session.WithExtractor(extractor))
	} else {
		config.Debugf("[CLI] OCR disabled: %v", err)
	}

	var sess *session.Session
	voice := speech.NewService(a.cfg, speech.WithStopHandler(func(err error) {
		sess.VoiceStopped(err)
	}))
	opts = append(opts, session.WithVoice(voice))

	if a.cfg.Session.HistoryEnabled {
		archive, err := a.openArchive()
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithRecorder(archive))
	}

	sess = session.New(newAssistant(a.cfg, a.keys), opts...)
	return sess, nil
}
