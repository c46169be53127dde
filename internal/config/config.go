// Package config 加载 tila 的 YAML 配置.
//
// 配置文件由 --config 参数或 TILA_CONFIG 环境变量指定; 都没有时使用默认值.
// 空字段保留默认值.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Hara602/tila/internal/source"
	"github.com/Hara602/tila/internal/store"
	"github.com/Hara602/tila/internal/sysutil"
	"gopkg.in/yaml.v3"
)

// EnvVar 指定配置文件路径的环境变量
const EnvVar = "TILA_CONFIG"

const maxBufferSize = 1 << 20

// Config tila 的全部配置
type Config struct {
	// Device 设备名子串, 不区分大小写
	Device string `yaml:"device"`

	Paths    PathsConfig    `yaml:"paths"`
	Commands CommandsConfig `yaml:"commands"`
	Sink     SinkConfig     `yaml:"sink"`
	Log      LogConfig      `yaml:"log"`

	// Source 配置来源 (文件路径或 <defaults>)
	Source string `yaml:"-"`
}

// PathsConfig 目录位置
type PathsConfig struct {
	// DataDir 日志目录. 默认: $XDG_DATA_HOME/tila
	DataDir string `yaml:"data_dir"`
	// Index 会话索引数据库. 默认: $XDG_STATE_HOME/tila/sessions.db
	Index string `yaml:"index"`
}

// CommandsConfig 外部程序
type CommandsConfig struct {
	// List 列出设备. 默认: xinput list
	List []string `yaml:"list"`
	// Test 单个设备的事件流, {id} 会被替换成设备编号. 默认: xinput test {id}
	Test []string `yaml:"test"`
}

// SinkConfig 日志写入
type SinkConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// LogConfig 运行日志
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default 默认配置, 路径在 Load 时才解析
func Default() Config {
	return Config{
		Device: "keychron",
		Commands: CommandsConfig{
			List: []string{"xinput", "list"},
			Test: []string{"xinput", "test", source.IDPlaceholder},
		},
		Sink:   SinkConfig{BufferSize: 4096},
		Log:    LogConfig{Level: "info"},
		Source: "<defaults>",
	}
}

// Load 读取并校验配置. path 为空时看 TILA_CONFIG, 仍为空则只用默认值.
// 显式指定的文件不存在是错误.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read 同 Load 但不校验, 调用方在叠加命令行参数之后自己调用 Validate
func Read(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	if candidate == "" {
		candidate = strings.TrimSpace(os.Getenv(EnvVar))
	}
	if candidate != "" {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
		}
		cfg.Source = candidate
	}

	if err := cfg.resolvePaths(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse 把 YAML 覆盖到 cfg 上, 未知字段报错
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// 空文件
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func (c *Config) resolvePaths() error {
	if c.Paths.DataDir == "" {
		dir, err := store.DataDir()
		if err != nil {
			return err
		}
		c.Paths.DataDir = dir
	}
	if c.Paths.Index == "" {
		dir, err := store.StateDir()
		if err != nil {
			return err
		}
		c.Paths.Index = filepath.Join(dir, "sessions.db")
	}
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.Index = expandHome(c.Paths.Index)
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate 检查配置是否可用
func (c Config) Validate() error {
	if strings.TrimSpace(c.Device) == "" {
		return errors.New("device must not be empty")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must not be empty")
	}
	if len(c.Commands.List) == 0 || c.Commands.List[0] == "" {
		return errors.New("commands.list must not be empty")
	}
	if len(c.Commands.Test) == 0 || c.Commands.Test[0] == "" {
		return errors.New("commands.test must not be empty")
	}
	if !slices.ContainsFunc(c.Commands.Test, func(arg string) bool {
		return strings.Contains(arg, source.IDPlaceholder)
	}) {
		return fmt.Errorf("commands.test must contain %s", source.IDPlaceholder)
	}
	if c.Sink.BufferSize <= 0 || c.Sink.BufferSize > maxBufferSize {
		return fmt.Errorf("sink.buffer_size must be between 1 and %d", maxBufferSize)
	}
	if _, err := sysutil.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
