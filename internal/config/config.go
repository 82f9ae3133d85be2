/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (and a .env file in the working directory) are read-only overrides.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// GeneratorConfig selects the generative capability backend.
// The API key is not stored on disk; it lives in the OS keychain.
type GeneratorConfig struct {
	Provider  string `yaml:"provider"` // gemini | http | none
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type CanvasConfig struct {
	Width      float64 `yaml:"width"`
	AutoHeight float64 `yaml:"auto_height"`
	MinHeight  float64 `yaml:"min_height"`
}

// ZoomRange bounds the scale of a section image.
type ZoomRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type ZoomConfig struct {
	Image ZoomRange `yaml:"image"`
	Hero  ZoomRange `yaml:"hero"`
	Step  float64   `yaml:"step"`
}

type PoseConfig struct {
	FullBodyHeight  float64 `yaml:"full_body_height"`
	UpperBodyHeight float64 `yaml:"upper_body_height"`
	Concurrency     int     `yaml:"concurrency"`
}

type AssetsConfig struct {
	Path string `yaml:"path"` // SQLite file; empty keeps assets in memory
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Generator     GeneratorConfig `yaml:"generator"`
	Canvas        CanvasConfig    `yaml:"canvas"`
	Zoom          ZoomConfig      `yaml:"zoom"`
	Pose          PoseConfig      `yaml:"pose"`
	Assets        AssetsConfig    `yaml:"assets"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Generator:     GeneratorConfig{Provider: "none", Model: "gemini-2.5-flash-image", BaseURL: "http://localhost:8080", TimeoutMs: 120000},
		Canvas:        CanvasConfig{Width: 860, AutoHeight: 600, MinHeight: 50},
		Zoom: ZoomConfig{
			Image: ZoomRange{Min: 0.1, Max: 5.0},
			Hero:  ZoomRange{Min: 0.5, Max: 3.0},
			Step:  0.1,
		},
		Pose:    PoseConfig{FullBodyHeight: 1200, UpperBodyHeight: 900, Concurrency: 2},
		Assets:  AssetsConfig{},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvProvider       = "DPC_GENERATOR"
	EnvModel          = "DPC_MODEL"
	EnvBaseURL        = "DPC_BASE_URL"
	EnvTimeoutMs      = "DPC_TIMEOUT_MS"
	EnvAPIKey         = "DPC_API_KEY"
	EnvAssetsPath     = "DPC_ASSETS"
	EnvTelemetryOptIn = "DPC_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "DPC_LOG_LEVEL"
	EnvLogFormat = "DPC_LOG_FORMAT"
	EnvLogSource = "DPC_LOG_SOURCE"
	EnvLogFile   = "DPC_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DetailPageComposer")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DetailPageComposer")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "detailpage")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "detailpage")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, loads a .env file
// from the working directory (if present) and merges environment overrides.
// The API key is resolved from the environment first, then the OS keyring.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	// .env never overrides variables already present in the process environment
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		key, _ = tokenStore.Get(keyringService, keyringAPIKey)
	}
	return cfg, key, nil
}

// Save writes the user config YAML and persists the API key into the OS keyring (if non-empty).
func Save(cfg AppConfig, apiKey string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if apiKey != "" {
		if err := tokenStore.Set(keyringService, keyringAPIKey, apiKey); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.TrimSpace(src.Generator.Provider); v != "" {
		dst.Generator.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Generator.Model); v != "" {
		dst.Generator.Model = v
	}
	if v := strings.TrimSpace(src.Generator.BaseURL); v != "" {
		dst.Generator.BaseURL = v
	}
	if src.Generator.TimeoutMs > 0 {
		dst.Generator.TimeoutMs = src.Generator.TimeoutMs
	}
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.AutoHeight > 0 {
		dst.Canvas.AutoHeight = src.Canvas.AutoHeight
	}
	if src.Canvas.MinHeight > 0 {
		dst.Canvas.MinHeight = src.Canvas.MinHeight
	}
	mergeZoom(&dst.Zoom.Image, src.Zoom.Image)
	mergeZoom(&dst.Zoom.Hero, src.Zoom.Hero)
	if src.Zoom.Step > 0 {
		dst.Zoom.Step = src.Zoom.Step
	}
	if src.Pose.FullBodyHeight > 0 {
		dst.Pose.FullBodyHeight = src.Pose.FullBodyHeight
	}
	if src.Pose.UpperBodyHeight > 0 {
		dst.Pose.UpperBodyHeight = src.Pose.UpperBodyHeight
	}
	if src.Pose.Concurrency > 0 {
		dst.Pose.Concurrency = src.Pose.Concurrency
	}
	if v := strings.TrimSpace(src.Assets.Path); v != "" {
		dst.Assets.Path = v
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

// mergeZoom only accepts a well-formed range; a half-specified range keeps the default.
func mergeZoom(dst *ZoomRange, src ZoomRange) {
	if src.Min > 0 && src.Max >= src.Min {
		*dst = src
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvProvider)); v != "" {
		cfg.Generator.Provider = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Generator.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.Generator.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Generator.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAssetsPath)); v != "" {
		cfg.Assets.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"generator.provider":       EnvProvider,
		"generator.model":          EnvModel,
		"generator.base_url":       EnvBaseURL,
		"generator.timeout_ms":     EnvTimeoutMs,
		"assets.path":              EnvAssetsPath,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the generator request timeout, falling back to the default.
func (g GeneratorConfig) Timeout() time.Duration {
	if g.TimeoutMs <= 0 {
		return time.Duration(Defaults().Generator.TimeoutMs) * time.Millisecond
	}
	return time.Duration(g.TimeoutMs) * time.Millisecond
}
