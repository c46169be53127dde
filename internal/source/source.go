package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Hara602/tila/internal/model"
)

// IDPlaceholder 命令模板里代表设备编号的占位符
const IDPlaceholder = "{id}"

// LineSource 以行的形式读取一个外部事件源
type LineSource interface {
	// NextLine 返回下一行(含换行符), 流结束时返回 "" 和 io.EOF
	NextLine() (string, error)
	Close() error
}

// Factory 为一个设备打开事件源
type Factory interface {
	Open(id model.DeviceID) (LineSource, error)
}

// FactoryFunc 函数适配器
type FactoryFunc func(id model.DeviceID) (LineSource, error)

func (f FactoryFunc) Open(id model.DeviceID) (LineSource, error) { return f(id) }

// Expand 用设备编号替换模板中的占位符
func Expand(template []string, id model.DeviceID) []string {
	argv := make([]string, len(template))
	for i, arg := range template {
		argv[i] = strings.ReplaceAll(arg, IDPlaceholder, id.String())
	}
	return argv
}

// readerSource 把 bufio.Reader 包装成 LineSource
type readerSource struct {
	r      *bufio.Reader
	closer func() error

	once     sync.Once
	closeErr error
}

func (s *readerSource) NextLine() (string, error) {
	line, err := s.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			// 最后一行没有换行符, 先交出去, 下一次再报 EOF
			if line != "" {
				return line, nil
			}
			return "", io.EOF
		}
		return line, fmt.Errorf("read line: %w", err)
	}
	return line, nil
}

// Close 可以重复调用, 只有第一次生效
func (s *readerSource) Close() error {
	s.once.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}

// Static 内存事件源, 依次返回给定的行
func Static(lines ...string) LineSource {
	return &readerSource{r: bufio.NewReader(strings.NewReader(strings.Join(lines, "")))}
}

// FromReader 从任意 io.Reader 读取
func FromReader(r io.Reader) LineSource {
	var closer func() error
	if c, ok := r.(io.Closer); ok {
		closer = c.Close
	}
	return &readerSource{r: bufio.NewReader(r), closer: closer}
}
