// Package yamlutil lets rgzip's -config flag supply defaults for flags
// the user didn't set explicitly on the command line.
package yamlutil

import (
	"flag"
	"fmt"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// SetFlagsFromYaml fills in every flag in fs that was not already set
// (explicitly, via fs.Set or the command line) from rawYaml, looking up
// each flag's value under the key REPLACE(UPPERCASE(flagname), "-", "_").
// Flags with no matching key, or already set, are left untouched.
func SetFlagsFromYaml(fs *flag.FlagSet, rawYaml []byte) error {
	conf := make(map[string]string)
	if err := yaml.Unmarshal(rawYaml, conf); err != nil {
		return fmt.Errorf("yamlutil: parsing config: %w", err)
	}

	alreadySet := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		alreadySet[f.Name] = true
	})

	var firstErr error
	fs.VisitAll(func(f *flag.Flag) {
		if alreadySet[f.Name] {
			return
		}
		key := strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		val, ok := conf[key]
		if !ok {
			return
		}
		if err := fs.Set(f.Name, val); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("yamlutil: invalid value %q for %s: %w", val, key, err)
		}
	})
	return firstErr
}
