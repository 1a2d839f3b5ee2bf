package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SecurityMethod defines the credential storage method
type SecurityMethod string

const (
	SecurityMasterKey SecurityMethod = "master_key"
	SecuritySSHKey    SecurityMethod = "ssh_key"
)

// CredentialStore is an encrypted key-value store for API credentials.
// Values are held in memory and written to credentials.enc on Save.
type CredentialStore struct {
	mu          sync.RWMutex
	method      SecurityMethod
	credentials map[string]string // providerID → API key
	sshKeyPath  string
	passphrase  string
	encManager  *EncryptionManager
	dataDir     string
}

func NewCredentialStore(method SecurityMethod, sshKeyPath string) *CredentialStore {
	return &CredentialStore{
		method:      method,
		credentials: make(map[string]string),
		sshKeyPath:  sshKeyPath,
	}
}

// SetPassphrase sets the passphrase for decrypting the SSH key
func (c *CredentialStore) SetPassphrase(passphrase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passphrase = passphrase
	c.encManager = nil
}

// Load reads and decrypts credentials from dataDir. A missing file is an
// empty store.
func (c *CredentialStore) Load(dataDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataDir = dataDir
	path := encryptedCredentialsPath(dataDir)
	if !FileExists(path) {
		c.credentials = make(map[string]string)
		return nil
	}

	if err := c.ensureManager(dataDir); err != nil {
		return err
	}

	encryptedData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read encrypted credentials: %w", err)
	}

	decryptedData, err := c.encManager.Decrypt(encryptedData)
	if err != nil {
		return fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	creds := make(map[string]string)
	if err := json.Unmarshal(decryptedData, &creds); err != nil {
		return fmt.Errorf("failed to parse decrypted credentials: %w", err)
	}
	c.credentials = creds

	return nil
}

// Save encrypts and writes credentials to dataDir with 0600 permissions.
func (c *CredentialStore) Save(dataDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dataDir = dataDir
	if err := c.ensureManager(dataDir); err != nil {
		return err
	}

	jsonData, err := json.Marshal(c.credentials)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}

	encryptedData, err := c.encManager.Encrypt(jsonData)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if err := os.WriteFile(encryptedCredentialsPath(dataDir), encryptedData, 0600); err != nil {
		return fmt.Errorf("failed to write encrypted credentials: %w", err)
	}

	return nil
}

func (c *CredentialStore) ensureManager(dataDir string) error {
	if c.encManager != nil {
		return nil
	}
	m := NewEncryptionManager(EncryptionMethod(c.method), dataDir, c.sshKeyPath)
	m.SetPassphrase(c.passphrase)
	if err := m.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize encryption: %w", err)
	}
	c.encManager = m
	return nil
}

// Get retrieves a stored credential
func (c *CredentialStore) Get(providerID string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credentials[providerID]
}

// Set stores a credential
func (c *CredentialStore) Set(providerID string, apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials[providerID] = apiKey
}

// Delete removes a credential
func (c *CredentialStore) Delete(providerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.credentials, providerID)
}

// APIKey returns the user's key for the provider, falling back to the
// built-in key for the default provider.
func (c *CredentialStore) APIKey(providerID string) string {
	if key := strings.TrimSpace(c.Get(providerID)); key != "" {
		return key
	}
	if providerID == DefaultProvider {
		return FallbackAPIKey
	}
	return ""
}

// HasUserKey reports whether a user key overrides the fallback.
func (c *CredentialStore) HasUserKey(providerID string) bool {
	return strings.TrimSpace(c.Get(providerID)) != ""
}

// SaveUserKey stores key for providerID and persists the store immediately.
func (c *CredentialStore) SaveUserKey(providerID, key string) error {
	c.Set(providerID, strings.TrimSpace(key))
	c.mu.RLock()
	dataDir := c.dataDir
	c.mu.RUnlock()
	if dataDir == "" {
		return fmt.Errorf("credential store has not been loaded")
	}
	return c.Save(dataDir)
}

// GetMethod returns the current security method
func (c *CredentialStore) GetMethod() SecurityMethod {
	return c.method
}

func encryptedCredentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.enc")
}
