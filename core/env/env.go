// Package env holds the shell's environment variables.
package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

const (
	Home   = "HOME"
	PWD    = "PWD"
	OldPWD = "OLDPWD"
	Path   = "PATH"
	User   = "USER"
)

// NewMapEnv creates a new environment backed by a map.
func NewMapEnv() *MapEnv {
	return &MapEnv{}
}

// NewMapEnvFromEnvList creates an environment from "key=value" pairs. Later
// duplicates win.
func NewMapEnvFromEnvList(environ []string) *MapEnv {
	out := &MapEnv{}

	for _, e := range environ {
		split := strings.SplitN(e, "=", 2)
		key, value := split[0], ""
		if len(split) > 1 {
			value = split[1]
		}
		out.Setenv(key, value)
	}

	return out
}

// FromOS copies the process environment.
func FromOS() *MapEnv {
	return NewMapEnvFromEnvList(os.Environ())
}

// MapEnv implements a thread-safe in-memory environment.
type MapEnv struct {
	rw  sync.RWMutex
	env map[string]string
}

// Unsetenv removes the variable.
func (m *MapEnv) Unsetenv(key string) {
	m.rw.Lock()
	defer m.rw.Unlock()
	if m.env != nil {
		delete(m.env, key)
	}
}

// Setenv sets the variable.
func (m *MapEnv) Setenv(key, value string) {
	m.rw.Lock()
	defer m.rw.Unlock()

	if m.env == nil {
		m.env = make(map[string]string)
	}
	m.env[key] = value
}

// LookupEnv returns the value of the variable and whether it was set.
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	m.rw.RLock()
	defer m.rw.RUnlock()

	val, ok := m.env[key]
	return val, ok
}

// Getenv returns the value of the variable or the empty string.
func (m *MapEnv) Getenv(key string) string {
	val, _ := m.LookupEnv(key)
	return val
}

// Environ returns the variables as sorted "key=value" pairs.
func (m *MapEnv) Environ() []string {
	m.rw.RLock()
	defer m.rw.RUnlock()

	env := make([]string, 0, len(m.env))
	for k, v := range m.env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)

	return env
}

// Home returns $HOME, falling back to the user's home directory.
func (m *MapEnv) Home() string {
	if home := m.Getenv(Home); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}
