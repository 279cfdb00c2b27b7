package capnslog

import "fmt"

// packageLogger writes level-gated lines through the repo-wide Formatter,
// tagged with the package name it was created for.
type packageLogger struct {
	pkg   string
	level LogLevel
}

func (p *packageLogger) log(level LogLevel, s string) {
	logger.lock.Lock()
	defer logger.lock.Unlock()
	if logger.formatter != nil {
		logger.formatter.Format(p.pkg, level, s)
	}
}

// Infof logs one line at INFO if the logger's level allows it.
func (p *packageLogger) Infof(format string, args ...interface{}) {
	if p.level < INFO {
		return
	}
	p.log(INFO, fmt.Sprintf(format, args...))
}

// Debugf logs one line at DEBUG if the logger's level allows it.
func (p *packageLogger) Debugf(format string, args ...interface{}) {
	if p.level < DEBUG {
		return
	}
	p.log(DEBUG, fmt.Sprintf(format, args...))
}

// Errorf logs one line at ERROR unconditionally; it does not itself abort
// or return an error, leaving that decision to the caller.
func (p *packageLogger) Errorf(format string, args ...interface{}) {
	p.log(ERROR, fmt.Sprintf(format, args...))
}
