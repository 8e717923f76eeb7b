// Package rules provides the pattern engine that evaluates tag rules and
// extracts attribute values from transaction rows.
package rules

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// DefaultMatchTimeout bounds a single match when Options leaves it unset.
const DefaultMatchTimeout = 250 * time.Millisecond

// DefaultMaxPatterns bounds the number of cached matchers.
const DefaultMaxPatterns = 4096

// Options configure an Engine.
type Options struct {
	// MatchTimeout bounds one match. A timed-out match is a non-match.
	MatchTimeout time.Duration

	// MaxPatterns bounds the matcher cache. The cache is emptied when full.
	MaxPatterns int
}

// Engine evaluates compiled patterns with ECMAScript semantics, so
// lookahead forms like ^(?!.*VOID) behave as authored.
// Constructed matchers are cached by pattern source; results never are.
type Engine struct {
	mu       sync.RWMutex
	matchers map[string]*compiledPattern
	opts     Options
}

// compiledPattern holds a constructed matcher, or the error from constructing it.
type compiledPattern struct {
	re  *regexp2.Regexp
	err error
}

// NewEngine creates a new pattern engine.
func NewEngine(opts Options) *Engine {
	if opts.MatchTimeout <= 0 {
		opts.MatchTimeout = DefaultMatchTimeout
	}
	if opts.MaxPatterns <= 0 {
		opts.MaxPatterns = DefaultMaxPatterns
	}

	return &Engine{
		matchers: make(map[string]*compiledPattern),
		opts:     opts,
	}
}

// ValidatePattern reports whether pattern can be constructed.
func (e *Engine) ValidatePattern(pattern string) error {
	_, err := e.compile(pattern)
	return err
}

// compile returns the cached matcher for pattern, constructing it on first use.
// Construction failures are cached too.
func (e *Engine) compile(pattern string) (*regexp2.Regexp, error) {
	e.mu.RLock()
	cp, ok := e.matchers[pattern]
	e.mu.RUnlock()
	if ok {
		return cp.re, cp.err
	}

	cp = &compiledPattern{}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		cp.err = fmt.Errorf("invalid pattern %q: %w", pattern, err)
	} else {
		re.MatchTimeout = e.opts.MatchTimeout
		cp.re = re
	}

	e.mu.Lock()
	if len(e.matchers) >= e.opts.MaxPatterns {
		e.matchers = make(map[string]*compiledPattern)
	}
	e.matchers[pattern] = cp
	e.mu.Unlock()

	return cp.re, cp.err
}

// PatternsCount returns the number of cached matchers.
func (e *Engine) PatternsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.matchers)
}

// Close drops all cached matchers.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matchers = make(map[string]*compiledPattern)
	return nil
}
