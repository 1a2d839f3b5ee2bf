package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TranscriptExport is the JSON document written by ExportJSON.
type TranscriptExport struct {
	Session    SessionSummary    `json:"session"`
	Messages   []ArchivedMessage `json:"messages"`
	ExportedAt time.Time         `json:"exported_at"`
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-",
		"<", "-", ">", "-", "|", "-", " ", "-", "\n", "-", "\r", "-",
	)
	name = replacer.Replace(name)

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	if len(name) > 50 {
		name = name[:50]
	}

	if name == "" {
		name = "session"
	}

	return name
}

// GenerateExportPath generates a default export path for a session
func GenerateExportPath(dir, title string, now time.Time) string {
	filename := fmt.Sprintf("blac-session-%s-%s.json", SanitizeFilename(title), now.Format("20060102-150405"))
	return filepath.Join(dir, filename)
}

// ExportJSON writes one session's transcript to exportPath.
func (a *Archive) ExportJSON(sessionID, exportPath string) error {
	msgs, err := a.Messages(sessionID)
	if err != nil {
		return err
	}

	var summary SessionSummary
	sessions, err := a.ListSessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if len(msgs) > 0 && s.ID == msgs[0].SessionID {
			summary = s
			break
		}
	}

	data, err := json.MarshalIndent(TranscriptExport{
		Session:    summary,
		Messages:   msgs,
		ExportedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// Ensure directory exists (0700 - user-only access)
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to file (0600 - transcripts contain sensitive data)
	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
