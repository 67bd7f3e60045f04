// Package logging hands out one slog.Logger per log category. The level of
// each category can be changed at runtime, e.g. from the OSC control surface.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

type LogCategory string

const (
	META   LogCategory = "meta" // For logs about logging
	NODE   LogCategory = "node" // Node lifecycle: instantiation, binding, failures
	PARAM  LogCategory = "param"
	RENDER LogCategory = "render" // Only from outside the render callback; the callback never logs
	OSC    LogCategory = "osc"
	APP    LogCategory = "app" // For application-specific logs (i.e. command line tools)
)

// Categories lists every known category.
var Categories = []LogCategory{META, NODE, PARAM, RENDER, OSC, APP}

// ParseCategory returns the category with the given name.
func ParseCategory(s string) (LogCategory, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

var (
	mu            sync.RWMutex
	output        io.Writer = os.Stderr
	loggers                 = map[LogCategory]*slog.Logger{}
	categoryLvls            = map[LogCategory]*slog.LevelVar{}
	defaultLevels           = map[LogCategory]slog.Level{
		META:   slog.LevelInfo,
		NODE:   slog.LevelInfo,
		PARAM:  slog.LevelWarn,
		RENDER: slog.LevelWarn,
		OSC:    slog.LevelWarn,
		APP:    slog.LevelInfo,
	}
)

// Get returns a slog.Logger that always has the "category" attribute set.
// Each category gets its own logger instance.
func Get(category LogCategory) *slog.Logger {
	mu.RLock()
	l, ok := loggers[category]
	mu.RUnlock()
	if ok {
		return l
	}
	mu.Lock()
	defer mu.Unlock()
	// Double-check after locking
	if l, ok := loggers[category]; ok {
		return l
	}
	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: levelVar(category),
	})
	catLogger := slog.New(handler).With("category", category)
	loggers[category] = catLogger
	return catLogger
}

// levelVar must be called with mu held for writing.
func levelVar(category LogCategory) *slog.LevelVar {
	lvlVar, ok := categoryLvls[category]
	if !ok {
		lvlVar = new(slog.LevelVar)
		if lvl, ok := defaultLevels[category]; ok {
			lvlVar.Set(lvl)
		}
		categoryLvls[category] = lvlVar
	}
	return lvlVar
}

// SetCategoryLevel changes the level of a category, including the loggers
// already handed out.
func SetCategoryLevel(category LogCategory, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	levelVar(category).Set(level)
}

// CategoryLevel returns the current level of a category.
func CategoryLevel(category LogCategory) slog.Level {
	mu.Lock()
	defer mu.Unlock()
	return levelVar(category).Level()
}

// SetOutput redirects the loggers created after the call to w. Intended to be
// called once at startup, before any logging.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	loggers = map[LogCategory]*slog.Logger{}
}
