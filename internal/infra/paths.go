package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents who tsmon runs as, which decides its default paths.
type ExecMode string

const (
	ExecModeUser   ExecMode = "user"
	ExecModeSystem ExecMode = "system"
)

// Paths holds the default locations for the config file and log file.
type Paths struct {
	Mode       ExecMode
	ConfigFile string
	LogFile    string
}

// DefaultPaths determines default paths based on effective UID.
func DefaultPaths() Paths {
	if os.Geteuid() == 0 {
		return Paths{
			Mode:       ExecModeSystem,
			ConfigFile: "/etc/tsmon/config.yaml",
			LogFile:    "/var/log/tsmon.log",
		}
	}
	return userPaths(GetRealUserHome())
}

func userPaths(home string) Paths {
	dir := filepath.Join(home, ".tsmon")
	return Paths{
		Mode:       ExecModeUser,
		ConfigFile: filepath.Join(dir, "config.yaml"),
		LogFile:    filepath.Join(dir, "tsmon.log"),
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}

// ExistingConfigFile returns the default config file if it exists, else "".
func (p Paths) ExistingConfigFile() string {
	if _, err := os.Stat(p.ConfigFile); err == nil {
		return p.ConfigFile
	}
	return ""
}
