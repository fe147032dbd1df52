// Package prompt holds the named text templates sent to models.
package prompt

import (
	_ "embed"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	InitialInstruction = "initial_instruction"
	JudgeEvaluation    = "judge_evaluation"
	ThematicSynthesis  = "thematic_synthesis"
	PersonaCard        = "persona_card"
)

// Names lists every template the benchmark renders.
var Names = []string{InitialInstruction, JudgeEvaluation, ThematicSynthesis, PersonaCard}

//go:embed defaults.yaml
var defaultsYAML []byte

// Fields are the named values a template may reference.
type Fields map[string]string

// Renderer produces prompt text. Render never fails; broken templates fall back to literal text.
type Renderer interface {
	Render(name string, fields Fields) string
}

// Store is a concurrency-safe set of named templates.
type Store struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
	sources   map[string]string
	logger    *zap.Logger
}

// New returns a store seeded with the built-in templates.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	templates, sources, err := parseTemplates(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in prompts: %v", err))
	}
	s.templates = templates
	s.sources = sources
	return s
}

// Load returns a store with the templates in path layered over the built-ins.
// A failing file is logged and the built-ins are kept.
func Load(path string, logger *zap.Logger) (*Store, error) {
	s := New(logger)
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	if err := s.LoadFile(path); err != nil {
		s.logger.Warn("prompt file not loaded, using built-in prompts", zap.String("path", path), zap.Error(err))
		return s, err
	}
	return s, nil
}

// LoadFile replaces the templates defined in path. Names absent from the file keep their current text.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompts: %w", err)
	}
	templates, sources, err := parseTemplates(data)
	if err != nil {
		return fmt.Errorf("parse prompts %s: %w", path, err)
	}
	s.mu.Lock()
	for name, tmpl := range templates {
		s.templates[name] = tmpl
		s.sources[name] = sources[name]
	}
	s.mu.Unlock()
	for _, name := range Names {
		if _, ok := templates[name]; !ok {
			s.logger.Warn("prompt missing from file", zap.String("path", path), zap.String("prompt", name))
		}
	}
	return nil
}

// Render executes the named template. Unknown names and execution errors yield the literal fallback.
func (s *Store) Render(name string, fields Fields) string {
	s.mu.RLock()
	tmpl, ok := s.templates[name]
	s.mu.RUnlock()
	if !ok {
		s.logger.Warn("unknown prompt, using fallback", zap.String("prompt", name))
		return Fallback(name, fields)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string(fields)); err != nil {
		s.logger.Warn("prompt render failed, using fallback", zap.String("prompt", name), zap.Error(err))
		return Fallback(name, fields)
	}
	return buf.String()
}

// Source returns the raw template text for name.
func (s *Store) Source(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.sources[name]
	return text, ok
}

// Loaded returns the names of every available template, sorted.
func (s *Store) Loaded() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}

// parseTemplates decodes a name to text mapping. JSON files parse as YAML.
func parseTemplates(data []byte) (map[string]*template.Template, map[string]string, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}
	templates := make(map[string]*template.Template, len(raw))
	for name, text := range raw {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, nil, fmt.Errorf("template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return templates, raw, nil
}
