package configs

import (
	"flag"
	"os"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/env"
)

var configCandidates = []string{
	"./config.yaml",
	"./config.yml",
	"../../config.yaml",
	"/etc/pfcontrol/config.yaml",
}

// DetermineConfigPath resolves the YAML config file from --config, then
// PFC_CONFIG, then the first candidate that exists. An empty result means
// defaults plus environment only.
func DetermineConfigPath() string {
	if flag.Lookup("config") == nil {
		flag.String("config", "", "path to config file")
	}
	if !flag.Parsed() {
		flag.Parse()
	}
	return resolveConfigPath(flag.Lookup("config").Value.String(), env.GetString(envPrefix+"CONFIG", ""), configCandidates)
}

func resolveConfigPath(flagPath, envPath string, candidates []string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath != "" {
		return envPath
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
