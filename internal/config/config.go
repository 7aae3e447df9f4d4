// Package config resolves run settings from defaults, an optional toml file,
// LFM_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultMinSizeMB     = 10.0
	DefaultMaxCount      = 100
	DefaultInventoryName = "fichiers_gros.json"
	EnvPrefix            = "LFM"
)

// Keys shared by viper, the config file and flag bindings.
const (
	KeyMinSizeMB      = "min_size_mb"
	KeyMaxCount       = "max_count"
	KeyInventory      = "inventory"
	KeyFollowSymlinks = "follow_symlinks"
	KeyExcludes       = "excludes"
	KeyDialect        = "dialect"
	KeyToken          = "token"
	KeyLogLevel       = "log_level"
)

// Settings is the resolved configuration of one run.
type Settings struct {
	MinSizeMB      float64
	MaxCount       int
	InventoryPath  string
	FollowSymlinks bool
	Excludes       []string
	Dialect        string
	Token          string
	LogLevel       string
}

// DefaultInventoryPath places the inventory next to the running executable,
// falling back to the working directory.
func DefaultInventoryPath() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Join(filepath.Dir(exe), DefaultInventoryName)
	}
	return DefaultInventoryName
}

// SetDefaults registers the documented defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyMinSizeMB, strconv.FormatFloat(DefaultMinSizeMB, 'f', -1, 64))
	v.SetDefault(KeyMaxCount, strconv.Itoa(DefaultMaxCount))
	v.SetDefault(KeyInventory, DefaultInventoryPath())
	v.SetDefault(KeyFollowSymlinks, false)
	v.SetDefault(KeyExcludes, []string{})
	v.SetDefault(KeyDialect, "")
	v.SetDefault(KeyToken, "OUI")
	v.SetDefault(KeyLogLevel, "info")
}

// Init wires env lookup and reads the config file, if any. cfgFile overrides
// the search in ~/.config/large-file-man and the working directory. It
// returns the file used, or "" when none was found.
func Init(v *viper.Viper, cfgFile string) (string, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "large-file-man"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}

// Load resolves Settings from v. Unusable thresholds are replaced by their
// defaults with a warning instead of failing the run.
func Load(v *viper.Viper, log logrus.FieldLogger) Settings {
	return Settings{
		MinSizeMB:      ParseMinSizeMB(v.GetString(KeyMinSizeMB), log),
		MaxCount:       ParseMaxCount(v.GetString(KeyMaxCount), log),
		InventoryPath:  v.GetString(KeyInventory),
		FollowSymlinks: v.GetBool(KeyFollowSymlinks),
		Excludes:       v.GetStringSlice(KeyExcludes),
		Dialect:        v.GetString(KeyDialect),
		Token:          v.GetString(KeyToken),
		LogLevel:       v.GetString(KeyLogLevel),
	}
}

// ParseMinSizeMB reads a megabyte threshold; fractions are allowed.
func ParseMinSizeMB(s string, log logrus.FieldLogger) float64 {
	mb, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(mb) || math.IsInf(mb, 0) {
		log.WithField("value", s).Warnf("invalid minimum size, using %v MB", DefaultMinSizeMB)
		return DefaultMinSizeMB
	}
	return mb
}

// ParseMaxCount reads the maximum number of files to keep.
func ParseMaxCount(s string, log logrus.FieldLogger) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.WithField("value", s).Warnf("invalid maximum count, using %d", DefaultMaxCount)
		return DefaultMaxCount
	}
	return n
}
