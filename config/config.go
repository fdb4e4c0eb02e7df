package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// SyncConfig configures the optional remote mirror. An empty endpoint
// disables pushing entirely.
type SyncConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	Token    string `yaml:"token" json:"token"`
	Interval string `yaml:"interval" json:"interval"`
}

type AppConfig struct {
	System SysConfig  `yaml:"system" json:"system"`
	Web    WebConfig  `yaml:"web" json:"web"`
	Logger LogConfig  `yaml:"logger" json:"logger"`
	Sync   SyncConfig `yaml:"sync" json:"sync"`
}

// BlobStorePath is the image database file under the workdir.
func (c *AppConfig) BlobStorePath() string {
	return filepath.Join(c.System.Workdir, "data", "images.db")
}

// RecordStorePath is the collection database file under the workdir.
func (c *AppConfig) RecordStorePath() string {
	return filepath.Join(c.System.Workdir, "data", "records.db")
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "stockpilot",
			Location: "Asia/Shanghai",
			Workdir:  "/var/stockpilot",
			Debug:    false,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 1816,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/stockpilot/stockpilot.log",
		},
		Sync: SyncConfig{
			Interval: "@every 10m",
		},
	}
}

// LoadConfig reads the yaml config file, falling back to defaults when
// the path is empty or the file does not exist.
func LoadConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}
