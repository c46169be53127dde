// Package store 决定日志文件放在哪里, 并分配不会覆盖旧日志的文件名
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	AppName    = "tila"
	filePrefix = "tila-"
	fileSuffix = ".log"
)

// ErrExists 分配到的文件名已经存在
var ErrExists = errors.New("log file already exists")

// DataDir 返回平台数据目录下的 tila 目录 ($XDG_DATA_HOME/tila 或 ~/.local/share/tila)
func DataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get data directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// StateDir 返回 $XDG_STATE_HOME/tila 或 ~/.local/state/tila
func StateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); filepath.IsAbs(dir) {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get state directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", AppName), nil
}

// Store 一个日志目录
type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

// EnsureDir 目录不存在时创建, 已存在不报错
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("could not create directory at %s: %w", s.Dir, err)
	}
	return nil
}

// NextPath 文件名中的编号等于目录里现有条目的数量
func (s *Store) NextPath() (string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", fmt.Errorf("could not read data directory: %w", err)
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s%d%s", filePrefix, len(entries), fileSuffix)), nil
}

// Create 确保目录存在并新建一个日志文件. 同名文件已存在时返回 ErrExists, 绝不覆盖.
func (s *Store) Create() (*os.File, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}
	path, err := s.NextPath()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			// 编号来自条目数量, 删掉旧日志后会撞上已有的文件名
			return nil, fmt.Errorf("%w: %s (log numbers follow the entry count of %s; an older log was probably removed, add or rename a file there so the next number is free)", ErrExists, path, s.Dir)
		}
		return nil, fmt.Errorf("could not create log file: %w", err)
	}
	return f, nil
}
