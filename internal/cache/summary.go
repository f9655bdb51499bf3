// Package cache keeps model summaries on disk so the same article is not
// summarized twice with the same settings.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is the on-disk form of one cached summary.
type Entry struct {
	Model   string    `json:"model"`
	Summary string    `json:"summary"`
	SavedAt time.Time `json:"saved_at"`
}

// SummaryCache stores one <key>.json file per summary under Dir.
type SummaryCache struct {
	Dir string
	// MaxAge makes older entries miss. Zero keeps entries forever.
	MaxAge time.Duration
	// StrictPerms enforces 0700 on the directory and 0600 on files.
	StrictPerms bool
}

// Key digests everything that changes the model's answer.
func Key(model, prompt string, maxTokens int, text string) string {
	h := sha256.New()
	for _, part := range []string{model, prompt, strconv.Itoa(maxTokens), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *SummaryCache) ensureDir() error {
	if c == nil || strings.TrimSpace(c.Dir) == "" {
		return errors.New("cache dir not configured")
	}
	perm := os.FileMode(0o755)
	if c.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(c.Dir, perm); err != nil {
		return err
	}
	if c.StrictPerms {
		if info, err := os.Stat(c.Dir); err == nil && info.Mode().Perm() != 0o700 {
			_ = os.Chmod(c.Dir, 0o700)
		}
	}
	return nil
}

func (c *SummaryCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns the cached summary for key. A missing, expired or unreadable
// entry is a miss, not an error.
func (c *SummaryCache) Get(_ context.Context, key string) (string, bool, error) {
	if err := c.ensureDir(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		return "", false, nil
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.Summary == "" {
		return "", false, nil
	}
	if c.MaxAge > 0 && time.Since(e.SavedAt) > c.MaxAge {
		return "", false, nil
	}
	return e.Summary, true, nil
}

// Save writes summary under key, replacing any previous entry.
func (c *SummaryCache) Save(_ context.Context, key, model, summary string) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	b, err := json.Marshal(Entry{Model: model, Summary: summary, SavedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	// Write then rename so a concurrent Get never sees a partial file.
	tmp, err := os.CreateTemp(c.Dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), c.pathFor(key))
}

// PurgeByAge removes entries whose file is older than maxAge and reports how
// many were removed.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) <= maxAge {
			return nil
		}
		if os.Remove(path) == nil {
			removed++
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return removed, err
}
