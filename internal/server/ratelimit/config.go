// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses client IP address as the rate limit key.
	ScopeIP Scope = iota
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds the read and write tiers. A nil tier is unlimited.
type Config struct {
	Read  *Tier
	Write *Tier
}

// NewConfig creates the tiers from per minute budgets. The burst is a tenth
// of a minute of traffic so a UI page load fits. 0 disables the tier.
func NewConfig(readPerMin, writePerMin int) *Config {
	return &Config{
		Read:  newTier("read", readPerMin),
		Write: newTier("write", writePerMin),
	}
}

func newTier(name string, perMin int) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{
		Name:    name,
		Limiter: NewLimiter(perMin, time.Minute, max(perMin/10, 1)),
		Scope:   ScopeIP,
	}
}

// Match returns the tier for a request or nil when it is not rate limited.
//
// Flag changes are writes whatever their method, since the UI issues them as
// GET. The batch image lookup is a read even though it uses POST.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	if isFlagRoute(path) {
		return c.Write
	}
	if method == http.MethodGet || method == http.MethodHead {
		return c.Read
	}
	if method == http.MethodPost && strings.HasPrefix(path, "/api/images/") {
		return c.Read
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{c.Read, c.Write} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}

func isFlagRoute(path string) bool {
	for _, p := range []string{"/api/record/", "/api/font/", "/api/label/"} {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
