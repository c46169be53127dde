// Package decoder 把采集日志还原成文本
package decoder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
)

const (
	opPress     = "press"
	fieldCount  = 4 // timestamp, "key", operation, keycode
	headerBytes = 262
)

// ErrNotPlainText 文件头是已知的二进制格式 (压缩包, 图片...)
var ErrNotPlainText = errors.New("not a plain-text capture log")

// ParseError 某一行无法解析
type ParseError struct {
	Line    int
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Content, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errShape   = errors.New("expected <timestamp> key <operation> <keycode>")
	errKeycode = errors.New("could not parse keycode")
)

// Decode 读取整个日志, 只处理 press, 把 keycode 查表拼成字符串.
// 表外的 keycode 和 release 静默忽略; 格式错误直接返回.
func Decode(r io.Reader) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		fields := strings.Fields(line)
		if len(fields) != fieldCount {
			return "", &ParseError{Line: lineNo, Content: line, Err: errShape}
		}
		operation, keycode := fields[2], fields[3]
		if operation != opPress {
			continue
		}

		code, err := strconv.ParseUint(keycode, 10, 8)
		if err != nil {
			return "", &ParseError{Line: lineNo, Content: line, Err: fmt.Errorf("%w: %v", errKeycode, err)}
		}
		if ch, ok := Lookup(uint8(code)); ok {
			out.WriteRune(ch)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("could not read log: %w", err)
	}
	return out.String(), nil
}

// DecodeFile 先检查文件头不是二进制格式, 再解码
func DecodeFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not read file: %w", err)
	}
	defer file.Close()

	head := make([]byte, headerBytes)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("could not read file: %w", err)
	}
	head = head[:n]

	if kind, _ := filetype.Match(head); kind != filetype.Unknown {
		return "", fmt.Errorf("%w: %s looks like %s (%s)", ErrNotPlainText, path, kind.Extension, kind.MIME.Value)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("could not rewind file: %w", err)
	}
	return Decode(file)
}
