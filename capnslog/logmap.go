// Package capnslog implements the small leveled-logging core rgzip needs:
// a per-repo log level gate and a pluggable output Formatter, handed out
// per package by NewPackageLogger. It is trimmed down from a broader
// leveled-logging design to the four levels and handful of methods a
// single-binary gzip decompressor actually calls — CRITICAL/ERROR for
// failures, INFO for one line per member decompressed, DEBUG for
// per-block decode transitions.
package capnslog

import (
	"fmt"
	"sync"
)

// LogLevel is the set of log levels this package tracks.
type LogLevel int8

const (
	// CRITICAL is for errors that abort the program.
	CRITICAL LogLevel = -1
	// ERROR is for a failed operation that does not necessarily abort.
	ERROR LogLevel = 0
	// INFO is for routine progress: one line per gzip member decompressed.
	INFO LogLevel = 1
	// DEBUG is for per-block decode transitions within a member.
	DEBUG LogLevel = 2
)

// Char returns a single-character representation of the log level.
func (l LogLevel) Char() string {
	switch l {
	case CRITICAL:
		return "C"
	case ERROR:
		return "E"
	case INFO:
		return "I"
	case DEBUG:
		return "D"
	default:
		panic("capnslog: unhandled log level")
	}
}

// ParseLevel translates a flag or config string into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch s {
	case "CRITICAL", "C":
		return CRITICAL, nil
	case "ERROR", "E":
		return ERROR, nil
	case "INFO", "I":
		return INFO, nil
	case "DEBUG", "D":
		return DEBUG, nil
	}
	return CRITICAL, fmt.Errorf("capnslog: couldn't parse log level %q", s)
}

// repoLogger is the set of package loggers registered under one repo path.
type repoLogger map[string]*packageLogger

type loggerStruct struct {
	lock      sync.Mutex
	repoMap   map[string]repoLogger
	formatter Formatter
}

// logger is the global logger state.
var logger = new(loggerStruct)

// RepoLogger returns the handle to a repository's set of package loggers.
func RepoLogger(repo string) (repoLogger, error) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	r, ok := logger.repoMap[repo]
	if !ok {
		return nil, fmt.Errorf("capnslog: no packages registered for repo %s", repo)
	}
	return r, nil
}

// MustRepoLogger is RepoLogger, panicking if repo has no registered loggers.
func MustRepoLogger(repo string) repoLogger {
	r, err := RepoLogger(repo)
	if err != nil {
		panic(err)
	}
	return r
}

// SetGlobalLogLevel sets the log level on every package logger in the repo.
func (r repoLogger) SetGlobalLogLevel(l LogLevel) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	for _, v := range r {
		v.level = l
	}
}

// SetFormatter sets the formatter used by every package logger.
func SetFormatter(f Formatter) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	logger.formatter = f
}

// NewPackageLogger returns the logger for pkg within repo, registering it
// (at INFO level) on first use. Call this once as a package-level var.
func NewPackageLogger(repo, pkg string) *packageLogger {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	if logger.repoMap == nil {
		logger.repoMap = make(map[string]repoLogger)
	}
	r, ok := logger.repoMap[repo]
	if !ok {
		r = make(repoLogger)
		logger.repoMap[repo] = r
	}
	p, ok := r[pkg]
	if !ok {
		p = &packageLogger{pkg: pkg, level: INFO}
		r[pkg] = p
	}
	return p
}
