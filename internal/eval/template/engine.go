package template

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
)

// Engine renders Handlebars templates
type Engine struct {
	cache map[string]*raymond.Template
	mu    sync.RWMutex
}

// raymond keeps helpers in a global registry and panics on duplicates.
var registerOnce sync.Once

// NewEngine creates a new template engine
func NewEngine() *Engine {
	engine := &Engine{
		cache: make(map[string]*raymond.Template),
	}

	registerOnce.Do(registerHelpers)

	return engine
}

// Render renders a template with the given data
func (e *Engine) Render(templateStr string, data interface{}) (string, error) {
	// Get or compile template
	tmpl, err := e.getTemplate(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to compile template: %w", err)
	}

	// Execute the template
	result, err := tmpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return result, nil
}

// getTemplate gets a compiled template from cache or compiles it
func (e *Engine) getTemplate(templateStr string) (*raymond.Template, error) {
	// Check cache first (read lock)
	e.mu.RLock()
	if tmpl, ok := e.cache[templateStr]; ok {
		e.mu.RUnlock()
		return tmpl, nil
	}
	e.mu.RUnlock()

	// Compile the template (write lock)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if tmpl, ok := e.cache[templateStr]; ok {
		return tmpl, nil
	}

	// Parse and compile the template
	tmpl, err := raymond.Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	// Cache the template
	e.cache[templateStr] = tmpl

	return tmpl, nil
}

// ValidateTemplate compiles a template without rendering it. The compiled
// template is cached for later Render calls.
func (e *Engine) ValidateTemplate(templateStr string) error {
	_, err := e.getTemplate(templateStr)
	return err
}

// registerHelpers registers custom Handlebars helpers
func registerHelpers() {
	// trim helper
	raymond.RegisterHelper("trim", func(str string) string {
		return strings.TrimSpace(str)
	})

	// eq helper - equality comparison
	raymond.RegisterHelper("eq", func(a, b interface{}) bool {
		return a == b
	})

	// ne helper - inequality comparison
	raymond.RegisterHelper("ne", func(a, b interface{}) bool {
		return a != b
	})

	// selected helper - "selected" attribute for the matching <option>
	raymond.RegisterHelper("selected", func(a, b string) raymond.SafeString {
		if a == b {
			return raymond.SafeString(" selected")
		}
		return raymond.SafeString("")
	})

	// number helper - shortest decimal form of a float
	raymond.RegisterHelper("number", func(v float64) string {
		return strconv.FormatFloat(v, 'g', -1, 64)
	})

	// join helper - join array elements with separator
	raymond.RegisterHelper("join", func(arr []string, sep string) string {
		return strings.Join(arr, sep)
	})
}
