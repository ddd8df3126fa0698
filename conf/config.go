package conf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/ini.v1"

	"xminidb/logger"
)

// Default storage parameters. PageSize is a startup constant: every persisted
// structure sizes itself against the value the file was created with.
const (
	DefaultPageSize       = 4096
	DefaultBufferPoolSize = 1024
	DefaultDataDir        = "data"
	DefaultDataFile       = "xminidb.db"
)

// Cfg 存储引擎配置
type Cfg struct {
	Raw *ini.File

	// storage
	DataDir        string
	DataFile       string
	PageSize       int
	BufferPoolSize int
	Checksum       bool

	// logs
	LogError string
	LogInfos string
	LogLevel string
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:            ini.Empty(),
		DataDir:        DefaultDataDir,
		DataFile:       DefaultDataFile,
		PageSize:       DefaultPageSize,
		BufferPoolSize: DefaultBufferPoolSize,
		Checksum:       true,
		LogLevel:       "info",
	}
}

// Load reads configPath and overlays it on the defaults. A missing file or a
// missing section keeps the defaults.
func (cfg *Cfg) Load(configPath string) (*Cfg, error) {
	if configPath == "" {
		configPath = "conf/xminidb.ini"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Debugf("配置文件不存在: %s，使用默认配置", configPath)
		return cfg, nil
	}

	parsedFile, err := ini.Load(configPath)
	if err != nil {
		return nil, errors.Annotatef(err, "load configuration %s", configPath)
	}
	cfg.Raw = parsedFile

	cfg.parseStorageCfg(cfg.Raw.Section("storage"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg, nil
}

// DataFilePath 数据文件的完整路径
func (cfg *Cfg) DataFilePath() string {
	return filepath.Join(cfg.DataDir, cfg.DataFile)
}

func (cfg *Cfg) parseStorageCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}

	dataDir, err := valueAsString(section, "data_dir", cfg.DataDir)
	if err == nil {
		cfg.DataDir = dataDir
	}

	dataFile, err := valueAsString(section, "data_file", cfg.DataFile)
	if err == nil {
		cfg.DataFile = dataFile
	}

	cfg.PageSize = section.Key("page_size").MustInt(cfg.PageSize)
	cfg.BufferPoolSize = section.Key("buffer_pool_size").MustInt(cfg.BufferPoolSize)
	cfg.Checksum = section.Key("checksum").MustBool(cfg.Checksum)

	return cfg
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}

	logError, err := valueAsString(section, "log_error", cfg.LogError)
	if err == nil {
		cfg.LogError = logError
	}

	logInfos, err := valueAsString(section, "log_infos", cfg.LogInfos)
	if err == nil {
		cfg.LogInfos = logInfos
	}

	logLevel, err := valueAsString(section, "log_level", cfg.LogLevel)
	if err == nil {
		cfg.LogLevel = strings.ToLower(logLevel)
		validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
		isValid := false
		for _, level := range validLevels {
			if cfg.LogLevel == level {
				isValid = true
				break
			}
		}
		if !isValid {
			logger.Debugf("无效的日志级别 '%s', 使用默认级别 'info'", logLevel)
			cfg.LogLevel = "info"
		}
	}

	return cfg
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) (string, error) {
	if section == nil {
		return defaultValue, nil
	}
	value := section.Key(keyName).MustString(defaultValue)
	if value == "" {
		value = defaultValue
	}
	return value, nil
}
