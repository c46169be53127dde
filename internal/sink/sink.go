// Package sink 把汇合后的事件流写入日志文件, 同时实时回显
package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Hara602/tila/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// DefaultBufferSize 写文件的缓冲大小
const DefaultBufferSize = 4096

// Sink 日志文件的唯一写入者
type Sink struct {
	Mirror     io.Writer // 实时输出, nil 表示不回显
	BufferSize int
	Log        *zap.Logger
}

// Result 一次 Drain 的统计
type Result struct {
	Records int
	Bytes   int64
}

// Drain 逐条接收事件: 先回显, 再写入缓冲. ctx 结束后仍会读完 channel,
// channel 关闭时 flush + fsync + close 文件. 任何写错误都直接返回.
func (s *Sink) Drain(ctx context.Context, file *os.File, lines <-chan model.EventLine) (res Result, err error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	size := s.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	writer := bufio.NewWriterSize(file, size)

	defer func() {
		if cerr := finish(writer, file); cerr != nil && err == nil {
			err = cerr
		}
		log.Info("log sink closed",
			zap.String("file", file.Name()),
			zap.Int("records", res.Records),
			zap.Int64("bytes", res.Bytes))
	}()

	done := ctx.Done()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return res, nil
			}
			if err := s.write(writer, line, &res); err != nil {
				return res, err
			}
		case <-done:
			// 已进入 channel 的记录都要落盘, 继续读到 listener 全部退出为止
			log.Info("capture interrupted, draining merged records", zap.Error(ctx.Err()))
			done = nil
		}
	}
}

func (s *Sink) write(writer *bufio.Writer, line model.EventLine, res *Result) error {
	record := line.String()
	if s.Mirror != nil {
		if _, err := io.WriteString(s.Mirror, record); err != nil {
			return fmt.Errorf("mirror record: %w", err)
		}
	}
	n, err := writer.WriteString(record)
	res.Bytes += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	res.Records++
	return nil
}

func finish(writer *bufio.Writer, file *os.File) error {
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := unix.Fsync(int(file.Fd())); err != nil {
		file.Close()
		return fmt.Errorf("fsync %s: %w", file.Name(), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", file.Name(), err)
	}
	return nil
}
