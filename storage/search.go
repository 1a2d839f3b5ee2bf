package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
)

// MessageMatch is a search hit in the archive.
type MessageMatch struct {
	SessionID string
	Role      string
	Content   string
	Preview   string
	Timestamp time.Time
	Score     int
}

// Search fuzzy-matches query against every archived message and returns
// the hits best first. Substring hits always rank above scattered ones.
func (a *Archive) Search(query string, limit int) ([]MessageMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []MessageMatch{}, nil
	}

	all, err := a.AllMessages()
	if err != nil {
		return nil, err
	}

	targets := make([]string, len(all))
	for i, m := range all {
		targets[i] = m.Content
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch
	for _, fm := range fuzzy.Find(query, targets) {
		msg := all[fm.Index]
		score := fm.Score
		if strings.Contains(strings.ToLower(msg.Content), queryLower) {
			score += 1000
		}
		matches = append(matches, MessageMatch{
			SessionID: msg.SessionID,
			Role:      msg.Role,
			Content:   msg.Content,
			Preview:   preview(msg.Content, 100),
			Timestamp: msg.Timestamp,
			Score:     score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
