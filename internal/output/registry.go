package output

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	// DefaultScheme handles routing keys without a registered scheme prefix.
	DefaultScheme = "appinsights"
	// AsyncPrefix marks a routing key whose sink is wrapped in a buffered writer.
	AsyncPrefix = "async+"
)

// ErrUnknownScheme is returned when no factory is registered for a scheme.
var ErrUnknownScheme = errors.New("output: unknown scheme")

// Factory creates an Output from the target part of a routing key.
type Factory func(target string) (Output, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a sink factory under the given scheme, replacing any
// previous registration.
func Register(scheme string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(scheme)] = f
}

// Get returns the factory registered for scheme.
func Get(scheme string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[strings.ToLower(scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	return f, nil
}

// Schemes returns the registered schemes, sorted.
func Schemes() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// schemePrefix matches a URI-style scheme followed by ':'. Instrumentation
// keys never contain ':' so any such prefix names a sink.
var schemePrefix = regexp.MustCompile(`^[a-z][a-z0-9+.-]*:`)

// ParseKey splits a routing key into scheme and target. A key with a
// scheme prefix selects that scheme whether or not it is registered, so
// Open reports ErrUnknownScheme for sinks not linked in. Any other key is
// a bare key for DefaultScheme.
func ParseKey(key string) (scheme, target string, async bool) {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(strings.ToLower(key), AsyncPrefix) {
		async = true
		key = key[len(AsyncPrefix):]
	}
	if schemePrefix.MatchString(strings.ToLower(key)) {
		i := strings.IndexByte(key, ':')
		return strings.ToLower(key[:i]), key[i+1:], async
	}
	return DefaultScheme, key, async
}

// Open parses key and creates its Output. The async prefix is reported but
// not applied here.
func Open(key string) (Output, string, bool, error) {
	scheme, target, async := ParseKey(key)
	f, err := Get(scheme)
	if err != nil {
		return nil, scheme, async, err
	}
	out, err := f(target)
	if err != nil {
		return nil, scheme, async, fmt.Errorf("output: open %s: %w", scheme, err)
	}
	return out, scheme, async, nil
}
