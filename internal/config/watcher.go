package config

import (
	"context"
	"os"
	"sync"
	"time"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"

	"github.com/sirupsen/logrus"
)

// ConfigWatcher polls a configuration file and reloads it when it changes,
// so secrets can be rotated without a restart. Environment variables still
// take precedence on every reload.
type ConfigWatcher struct {
	configPath   string
	logger       *logrus.Logger
	pollInterval time.Duration
	mu           sync.RWMutex
	config       *models.Config
	callbacks    []func(*models.Config)
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *logrus.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		configPath:   configPath,
		logger:       logger,
		pollInterval: time.Duration(constants.DefaultConfigPollIntervalSec) * time.Second,
		callbacks:    make([]func(*models.Config), 0),
	}
}

// fileFingerprint identifies a version of the config file. Size is
// included because coarse mtime resolution can hide a quick rewrite.
type fileFingerprint struct {
	modTime time.Time
	size    int64
}

func fingerprint(path string) (fileFingerprint, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return fileFingerprint{}, err
	}
	return fileFingerprint{modTime: stat.ModTime(), size: stat.Size()}, nil
}

// Start loads the file and then polls it until ctx is cancelled
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	config, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}
	last, err := fingerprint(cw.configPath)
	if err != nil {
		return err
	}

	cw.mu.Lock()
	cw.config = config
	cw.mu.Unlock()

	cw.logger.WithFields(logrus.Fields{
		"path":     cw.configPath,
		"interval": cw.pollInterval.String(),
	}).Info("Configuration watcher started")

	ticker := time.NewTicker(cw.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return nil
		case <-ticker.C:
			last = cw.poll(last)
		}
	}
}

// poll reloads the file when its fingerprint differs from last and returns
// the fingerprint to compare against next time
func (cw *ConfigWatcher) poll(last fileFingerprint) fileFingerprint {
	current, err := fingerprint(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to stat configuration file")
		return last
	}
	if current.size == last.size && current.modTime.Equal(last.modTime) {
		return last
	}

	cw.logger.Debug("Configuration file changed")
	cw.reloadConfig()
	return current
}

// GetConfig returns the current configuration (thread-safe)
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// OnConfigChange registers a callback to be called when configuration changes
func (cw *ConfigWatcher) OnConfigChange(callback func(*models.Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// reloadConfig reloads the file. An invalid file keeps the previous
// configuration in force.
func (cw *ConfigWatcher) reloadConfig() {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration")
		return
	}

	cw.mu.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := make([]func(*models.Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")

	for _, callback := range callbacks {
		func(cb func(*models.Config)) {
			defer func() {
				if r := recover(); r != nil {
					cw.logger.WithField("panic", r).Error("Config change callback panicked")
				}
			}()
			cb(newConfig)
		}(callback)
	}

	cw.logConfigChanges(oldConfig, newConfig)
}

// logConfigChanges logs notable changes without logging secret values
func (cw *ConfigWatcher) logConfigChanges(old, new *models.Config) {
	if old == nil {
		return
	}

	if old.VerifyToken != new.VerifyToken {
		cw.logger.Info("Verify token rotated")
	}
	if old.PullSecret != new.PullSecret {
		cw.logger.Info("Pull secret rotated")
	}
	if old.LogLevel != new.LogLevel {
		cw.logger.WithFields(logrus.Fields{
			"old": old.LogLevel,
			"new": new.LogLevel,
		}).Info("Log level changed")
	}
	if old.Port != new.Port {
		cw.logger.WithFields(logrus.Fields{
			"old": old.Port,
			"new": new.Port,
		}).Warn("Port change requires a restart to take effect")
	}
}
