// Package config implements the keyed configuration shared by heron's
// launcher and scheduler. A Config is an immutable string map built up in
// layers (defaults, cluster yaml, command line); later layers win.
package config

import (
	"sort"
	"strconv"
)

type Config struct {
	kvs map[string]string
}

// Builder accumulates key/value layers and produces an immutable Config.
type Builder struct {
	kvs map[string]string
}

func NewBuilder() *Builder {
	return &Builder{kvs: make(map[string]string)}
}

// Put sets a single key, overriding any earlier layer.
func (b *Builder) Put(key, value string) *Builder {
	b.kvs[key] = value
	return b
}

// PutAll copies every entry of c over the builder's current contents.
func (b *Builder) PutAll(c *Config) *Builder {
	if c == nil {
		return b
	}
	for k, v := range c.kvs {
		b.kvs[k] = v
	}
	return b
}

func (b *Builder) Build() *Config {
	kvs := make(map[string]string, len(b.kvs))
	for k, v := range b.kvs {
		kvs[k] = v
	}
	return &Config{kvs: kvs}
}

// GetString returns the value for key and whether it was present.
func (c *Config) GetString(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.kvs[key]
	return v, ok
}

// StringOrDefault returns the value for key, or def if unset.
func (c *Config) StringOrDefault(key, def string) string {
	if v, ok := c.GetString(key); ok {
		return v
	}
	return def
}

// IntOrDefault returns the value for key parsed as an int, or def if the key
// is unset or does not parse.
func (c *Config) IntOrDefault(key string, def int) int {
	v, ok := c.GetString(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// Keys returns every configured key, sorted.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.kvs))
	for k := range c.kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of configured keys.
func (c *Config) Len() int {
	if c == nil {
		return 0
	}
	return len(c.kvs)
}
