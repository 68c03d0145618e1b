// Package log provides the module-scoped loggers used across the chain
// core, mirroring klaytn's log.NewModuleLogger: every package grabs its own
// named logger at init time instead of passing one around.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.Mutex
	base    *zap.Logger
	modules = map[string]*Logger{}
)

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	base = l
}

// Logger is a named wrapper around *zap.SugaredLogger.
type Logger struct {
	module string
	sugar  *zap.SugaredLogger
}

// SetDevelopment swaps the backend for a human-readable development logger.
// Intended to be called once, early, by a process entrypoint; never by
// library code.
func SetDevelopment() {
	mu.Lock()
	defer mu.Unlock()
	l, err := zap.NewDevelopment()
	if err != nil {
		return
	}
	base = l
	for name, lg := range modules {
		lg.sugar = base.Sugar().Named(name)
	}
}

// NewModuleLogger returns the (cached) logger for module, creating it on
// first use.
func NewModuleLogger(module string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	if lg, ok := modules[module]; ok {
		return lg
	}
	lg := &Logger{module: module, sugar: base.Sugar().Named(module)}
	modules[module] = lg
	return lg
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Crit logs at error level and panics; reserved for invariant violations
// that make the process state untrustworthy (e.g. a corrupt dbConfigRatio
// style configuration check failing at startup).
func (l *Logger) Crit(msg string, kv ...interface{}) {
	l.sugar.Errorw(msg, kv...)
	panic(msg)
}

// Module well-known names, matching klaytn's log.<Module> constants.
const (
	ModuleAccumulator = "accumulator"
	ModuleStateDB     = "statedb"
	ModuleStorage     = "storage"
	ModuleVerifier    = "verifier"
	ModuleExecutor    = "executor"
	ModuleChain       = "chain"
)
