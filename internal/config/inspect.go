package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RequiredKeys must be present in a config file for it to be considered complete.
var RequiredKeys = []string{
	"scan.start",
	"scan.end",
	"scan.concurrency",
	"scan.targetSnippet",
	"filter.skipNumbers",
	"output.resultFile",
	"output.errorFile",
}

// MissingKeys reads path without defaults or environment and lists the
// RequiredKeys it does not set.
func MissingKeys(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var missing []string
	for _, key := range RequiredKeys {
		if !v.IsSet(key) {
			missing = append(missing, key)
		}
	}
	return missing, nil
}
