package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LoadedPrompt is the file content of an operation's prompt overrides.
type LoadedPrompt struct {
	System string
	User   string
}

// PromptStore holds prompt overrides read from files. It is safe for
// concurrent use so the server can swap prompts while requests run.
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[string]LoadedPrompt
}

// NewPromptStore returns an empty store.
func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[string]LoadedPrompt)}
}

// Get returns the loaded overrides of op. A nil store has none.
func (s *PromptStore) Get(op string) LoadedPrompt {
	if s == nil {
		return LoadedPrompt{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[op]
}

// Count reports how many prompt texts are loaded.
func (s *PromptStore) Count() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.prompts {
		if p.System != "" {
			n++
		}
		if p.User != "" {
			n++
		}
	}
	return n
}

func (s *PromptStore) replace(prompts map[string]LoadedPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = prompts
}

// Prompts returns the store holding file-based prompt overrides.
func (c *Config) Prompts() *PromptStore {
	return c.prompts
}

// PromptFiles lists every configured prompt file path.
func (c *Config) PromptFiles() []string {
	var files []string
	for _, op := range Operations() {
		raw, _ := c.operation(op)
		if raw.Prompts.SystemFile != "" {
			files = append(files, raw.Prompts.SystemFile)
		}
		if raw.Prompts.UserFile != "" {
			files = append(files, raw.Prompts.UserFile)
		}
	}
	return files
}

// LoadPrompts reads every configured prompt file. On failure the previously
// loaded prompts stay in place, so a bad edit on disk never blanks a prompt.
func (c *Config) LoadPrompts() error {
	if c.prompts == nil {
		c.prompts = NewPromptStore()
	}

	loaded := make(map[string]LoadedPrompt)
	for _, op := range Operations() {
		raw, _ := c.operation(op)
		var p LoadedPrompt
		var err error
		if raw.Prompts.SystemFile != "" {
			if p.System, err = readPromptFile(raw.Prompts.SystemFile, "system", op); err != nil {
				return err
			}
		}
		if raw.Prompts.UserFile != "" {
			if p.User, err = readPromptFile(raw.Prompts.UserFile, "user", op); err != nil {
				return err
			}
		}
		if p != (LoadedPrompt{}) {
			loaded[op] = p
		}
	}

	c.prompts.replace(loaded)
	if n := c.prompts.Count(); n > 0 {
		log.Printf("[CONFIG] Custom prompts loaded from files: %d", n)
	}
	return nil
}

func readPromptFile(path, kind, op string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s %s prompt file '%s': %w", op, kind, path, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", op, kind, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", op, kind, absPath)
	}
	return trimmed, nil
}

// validatePromptFiles reports every missing prompt file at once.
func (c *Config) validatePromptFiles() error {
	var problems []string
	for _, file := range c.PromptFiles() {
		absPath, err := filepath.Abs(file)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid prompt path: %s", file))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("prompt file not found: %s", absPath))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}
