// Package listener 为每个设备启动一个监听 goroutine, 并把所有事件汇入同一个 channel
package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Hara602/tila/internal/model"
	"github.com/Hara602/tila/internal/source"
	"go.uber.org/zap"
)

const defaultBuffer = 64

// Supervisor 管理全部 Device Listener
type Supervisor struct {
	Factory source.Factory
	Clock   func() time.Time
	Log     *zap.Logger
	// Buffer 汇合 channel 的容量
	Buffer int

	mu     sync.Mutex
	counts map[model.DeviceID]int
}

func New(factory source.Factory, log *zap.Logger) *Supervisor {
	return &Supervisor{Factory: factory, Log: log}
}

// Start 先为每个设备打开事件源, 任何一个失败都直接返回错误 (已打开的会被关闭);
// 然后每个设备起一个 goroutine. 所有 listener 结束后返回的 channel 会被关闭.
func (s *Supervisor) Start(ctx context.Context, ids []model.DeviceID) (<-chan model.EventLine, error) {
	if s.Factory == nil {
		return nil, errors.New("no event source factory")
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	buffer := s.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	sources := make([]source.LineSource, 0, len(ids))
	for _, id := range ids {
		src, err := s.Factory.Open(id)
		if err != nil {
			for _, opened := range sources {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("open event source for device %d: %w", id, err)
		}
		sources = append(sources, src)
	}

	s.mu.Lock()
	s.counts = make(map[model.DeviceID]int, len(ids))
	s.mu.Unlock()

	out := make(chan model.EventLine, buffer)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id model.DeviceID, src source.LineSource) {
			defer wg.Done()
			s.listen(ctx, id, src, out)
		}(id, sources[i])
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	s.Log.Info("listeners started", zap.Int("devices", len(ids)))
	return out, nil
}

// listen 单个设备的读循环. 时间戳在阻塞读之前取样, 反映的是上一条事件被消费后的时刻.
func (s *Supervisor) listen(ctx context.Context, id model.DeviceID, src source.LineSource, out chan<- model.EventLine) {
	log := s.Log.With(zap.Stringer("device", id))
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("close event source", zap.Error(err))
		}
	}()

	// 取消时关闭事件源, 把阻塞中的读唤醒
	stop := context.AfterFunc(ctx, func() { _ = src.Close() })
	defer stop()

	sent := 0
	defer func() { s.record(id, sent) }()

	for {
		ts := model.Micros(s.Clock())

		line, err := src.NextLine()
		if errors.Is(err, io.EOF) {
			log.Info("event stream ended", zap.Int("lines", sent))
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Info("listener cancelled", zap.Int("lines", sent))
				return
			}
			log.Error("event source read failed", zap.Error(err))
			return
		}

		select {
		case out <- model.EventLine{Timestamp: ts, Raw: line}:
			sent++
		case <-ctx.Done():
			// 消费端已经不再接收, 只结束这个 listener
			log.Warn("merge channel closed, listener stopping", zap.Error(ctx.Err()))
			return
		}
	}
}

func (s *Supervisor) record(id model.DeviceID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[id] += n
}

// Stats 每个设备已发送的行数, 在 channel 关闭后调用才是最终值
func (s *Supervisor) Stats() map[model.DeviceID]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[model.DeviceID]int, len(s.counts))
	for id, n := range s.counts {
		stats[id] = n
	}
	return stats
}
