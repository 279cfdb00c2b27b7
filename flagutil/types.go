package flagutil

import (
	"github.com/coreos/rgzip/capnslog"
)

// LogLevelFlag parses a string into a capnslog.LogLevel. This type
// implements the flag.Value interface.
type LogLevelFlag struct {
	val capnslog.LogLevel
}

func (f *LogLevelFlag) Level() capnslog.LogLevel {
	return f.val
}

func (f *LogLevelFlag) Set(v string) error {
	l, err := capnslog.ParseLevel(v)
	if err != nil {
		return err
	}
	f.val = l
	return nil
}

func (f *LogLevelFlag) String() string {
	return f.val.Char()
}
