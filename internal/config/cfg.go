package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultStateFile          = "/var/lib/egp-rewriter/state.info"
	defaultLogLevel           = "info"
	defaultSysLogEnabled      = false
	defaultFileLoggingEnabled = false
	defaultLogFilename        = "/var/log/egp-rewriter.log"
	defaultLogFileMaxSize     = 256
	defaultLogFileMaxBackups  = 3
	defaultLogFileMaxAge      = 5
	defaultInputDir           = "input"
	defaultOutputDir          = "output"
	defaultMappingFile        = "schema_mapping.json"
	defaultWorkers            = 1
	defaultWatchIntervalSec   = 30
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Rewrite RewriteConfig `yaml:"rewrite"`
}

type AppConfig struct {
	// ListenAddr enables the health and metrics HTTP endpoint when set.
	ListenAddr string `yaml:"listen_addr"`
	// StateFile keeps the processed-archive registry used by watch mode.
	StateFile string  `yaml:"state_file"`
	Logging   Logging `yaml:"logging"`
}

type Logging struct {
	Level              string `yaml:"level"`
	SysLogEnabled      bool   `yaml:"syslog_enabled"`
	FileLoggingEnabled bool   `yaml:"file_enabled"`
	Filename           string `yaml:"file_name"`
	MaxSize            int    `yaml:"file_max_size"`    // megabytes
	MaxBackups         int    `yaml:"file_max_backups"` // files
	MaxAge             int    `yaml:"file_max_age"`     // days
}

func (c *AppConfig) withDefaults() {
	if c == nil {
		return
	}

	c.StateFile = defaultStateFile

	c.Logging.Level = defaultLogLevel
	c.Logging.SysLogEnabled = defaultSysLogEnabled
	c.Logging.FileLoggingEnabled = defaultFileLoggingEnabled
	c.Logging.Filename = defaultLogFilename
	c.Logging.MaxSize = defaultLogFileMaxSize
	c.Logging.MaxBackups = defaultLogFileMaxBackups
	c.Logging.MaxAge = defaultLogFileMaxAge
}

type RewriteConfig struct {
	// InputDir is scanned, non-recursively, for *.egp archives.
	InputDir string `yaml:"input_dir"`
	// OutputDir receives one rewritten archive per input, same name.
	OutputDir string `yaml:"output_dir"`
	// MappingFile is the JSON schema mapping table.
	MappingFile string `yaml:"mapping_file"`
	// ReportFile receives the batch report as JSON. Empty disables it.
	ReportFile string `yaml:"report_file"`
	// Workers caps how many archives are rewritten concurrently.
	Workers int         `yaml:"workers"`
	Watch   WatchConfig `yaml:"watch"`
}

type WatchConfig struct {
	Enabled     bool `yaml:"enabled"`
	IntervalSec int  `yaml:"interval_seconds"`
}

func (c *RewriteConfig) withDefaults() {
	if c == nil {
		return
	}

	c.InputDir = defaultInputDir
	c.OutputDir = defaultOutputDir
	c.MappingFile = defaultMappingFile
	c.Workers = defaultWorkers
	c.Watch.IntervalSec = defaultWatchIntervalSec
}

func ReadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := ioutil.ReadAll(file)
	if err != nil {
		return nil, err
	}

	var cfg Config
	cfg.withDefaults()
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) withDefaults() {
	if c == nil {
		return
	}

	app := &c.App
	app.withDefaults()

	rw := &c.Rewrite
	rw.withDefaults()
}
