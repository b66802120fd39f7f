package api

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
)

const defaultSpeechCode = "en-US"

// MetaFetcher is the part of Client the cache depends on.
type MetaFetcher interface {
	FetchMeta(ctx context.Context) (Meta, error)
}

// MetaCache holds the language/level catalog for the life of the process.
// The first successful fetch populates it; it is never invalidated except via
// Reset. Concurrent first callers share a single request.
type MetaCache struct {
	fetcher MetaFetcher
	group   singleflight.Group

	mu   sync.RWMutex
	meta *Meta
}

func NewMetaCache(fetcher MetaFetcher) *MetaCache {
	return &MetaCache{fetcher: fetcher}
}

func (c *MetaCache) Get(ctx context.Context) (Meta, error) {
	if meta, ok := c.Cached(); ok {
		return meta, nil
	}
	v, err, _ := c.group.Do("meta", func() (any, error) {
		if meta, ok := c.Cached(); ok {
			return meta, nil
		}
		meta, err := c.fetcher.FetchMeta(ctx)
		if err != nil {
			return Meta{}, err
		}
		c.mu.Lock()
		c.meta = &meta
		c.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return Meta{}, err
	}
	return v.(Meta), nil
}

// Cached returns the catalog without touching the network.
func (c *MetaCache) Cached() (Meta, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.meta == nil {
		return Meta{}, false
	}
	return *c.meta, true
}

// Reset drops the cached catalog. Tests only.
func (c *MetaCache) Reset() {
	c.mu.Lock()
	c.meta = nil
	c.mu.Unlock()
}

func (m Meta) Language(displayName string) (LanguageMeta, bool) {
	for _, lang := range m.Languages {
		if lang.DisplayName == displayName {
			return lang, true
		}
	}
	return LanguageMeta{}, false
}

func (m Meta) Level(code string) (LevelMeta, bool) {
	for _, level := range m.Levels {
		if level.Code == code {
			return level, true
		}
	}
	return LevelMeta{}, false
}

// SpeechCode returns the BCP 47 locale used for speech playback of a
// language, en-US when unknown or malformed.
func (m Meta) SpeechCode(displayName string) string {
	lang, ok := m.Language(displayName)
	if !ok || strings.TrimSpace(lang.SpeechCode) == "" {
		return defaultSpeechCode
	}
	tag, err := language.Parse(lang.SpeechCode)
	if err != nil {
		return defaultSpeechCode
	}
	return tag.String()
}

func (m Meta) NativeSymbol(displayName string) string {
	lang, _ := m.Language(displayName)
	return lang.NativeSymbol
}

func (m Meta) RomanSymbol(displayName string) string {
	lang, _ := m.Language(displayName)
	return lang.RomanSymbol
}

// DefaultScenario returns the per-language scenario for a level, falling back
// to the level default.
func (m Meta) DefaultScenario(levelCode, langCode string) string {
	level, ok := m.Level(levelCode)
	if !ok {
		return ""
	}
	if scenario, ok := level.Scenarios[langCode]; ok {
		return scenario
	}
	return level.DefaultScenario
}

func (m Meta) LanguageNames() []string {
	out := make([]string, 0, len(m.Languages))
	for _, lang := range m.Languages {
		out = append(out, lang.DisplayName)
	}
	return out
}

func (m Meta) LevelCodes() []string {
	out := make([]string, 0, len(m.Levels))
	for _, level := range m.Levels {
		out = append(out, level.Code)
	}
	return out
}
