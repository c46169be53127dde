// Package capture 把发现, 监听, 汇合, 落盘串成一次采集会话
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Hara602/tila/internal/discovery"
	"github.com/Hara602/tila/internal/listener"
	"github.com/Hara602/tila/internal/model"
	"github.com/Hara602/tila/internal/sessiondb"
	"github.com/Hara602/tila/internal/sink"
	"github.com/Hara602/tila/internal/source"
	"github.com/Hara602/tila/internal/store"
	"github.com/Hara602/tila/internal/watcher"
	"go.uber.org/zap"
)

const (
	TerminationCompleted   = "completed"
	TerminationInterrupted = "interrupted"
	TerminationError       = "error"
)

// Options 一次采集需要的依赖, Index 和 Watcher 可以为 nil
type Options struct {
	Device     string
	Lister     discovery.Lister
	Factory    source.Factory
	Store      *store.Store
	Index      *sessiondb.Index
	Watcher    watcher.InputWatcher
	Mirror     io.Writer
	BufferSize int
	Clock      func() time.Time
	Log        *zap.Logger
}

// Summary 采集结果
type Summary struct {
	LogPath     string
	DeviceIDs   []model.DeviceID
	Records     int
	Bytes       int64
	PerDevice   map[model.DeviceID]int
	StartedAt   time.Time
	FinishedAt  time.Time
	Termination string
}

// Run 发现设备 -> 启动 listener -> 新建日志文件 -> 一直写到所有事件流结束或 ctx 取消
func Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.Lister == nil || opts.Factory == nil || opts.Store == nil {
		return Summary{}, errors.New("capture: lister, factory and store are required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	summary := Summary{StartedAt: clock(), Termination: TerminationError}

	ids, err := discovery.Discover(ctx, opts.Lister, opts.Device)
	if err != nil {
		return summary, err
	}
	summary.DeviceIDs = ids
	log.Info("devices discovered", zap.String("device", opts.Device), zap.Any("ids", ids))

	// listener 和 sink 共用这个 ctx; 任何一步失败都要让 listener 退出
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup := &listener.Supervisor{Factory: opts.Factory, Clock: clock, Log: log}
	lines, err := sup.Start(runCtx, ids)
	if err != nil {
		return summary, err
	}

	file, err := opts.Store.Create()
	if err != nil {
		return summary, err
	}
	summary.LogPath = file.Name()
	log.Info("log file created", zap.String("path", summary.LogPath))

	sessionID := beginSession(opts.Index, log, sessiondb.Session{
		LogPath:   summary.LogPath,
		Device:    opts.Device,
		DeviceIDs: ids,
		StartedAt: summary.StartedAt,
	})

	stopWatch := watchHotplug(opts.Watcher, log)
	defer stopWatch()

	s := &sink.Sink{Mirror: opts.Mirror, BufferSize: opts.BufferSize, Log: log}
	res, drainErr := s.Drain(runCtx, file, lines)
	summary.Records = res.Records
	summary.Bytes = res.Bytes
	summary.FinishedAt = clock()

	switch {
	case drainErr != nil:
		summary.Termination = TerminationError
	case ctx.Err() != nil:
		summary.Termination = TerminationInterrupted
	default:
		summary.Termination = TerminationCompleted
	}

	if drainErr == nil {
		// sink 读到 channel 关闭才返回, 所有 listener 都已结束, 统计是最终值
		summary.PerDevice = sup.Stats()
	}

	finishSession(opts.Index, log, sessionID, summary)

	if drainErr != nil {
		return summary, fmt.Errorf("write log: %w", drainErr)
	}
	return summary, nil
}

func beginSession(idx *sessiondb.Index, log *zap.Logger, s sessiondb.Session) int64 {
	if idx == nil {
		return 0
	}
	id, err := idx.Begin(s)
	if err != nil {
		// 索引只是辅助信息, 日志文件才是主体
		log.Warn("failed to record session start", zap.Error(err))
		return 0
	}
	return id
}

func finishSession(idx *sessiondb.Index, log *zap.Logger, id int64, summary Summary) {
	if idx == nil || id == 0 {
		return
	}
	if err := idx.Finish(id, summary.FinishedAt, summary.Records, summary.Bytes, summary.Termination); err != nil {
		log.Warn("failed to record session end", zap.Error(err))
	}
}

func watchHotplug(w watcher.InputWatcher, log *zap.Logger) func() {
	if w == nil {
		return func() {}
	}
	events, err := w.Start()
	if err != nil {
		log.Warn("input hotplug watcher unavailable", zap.Error(err))
		return func() {}
	}
	if events == nil {
		return w.Stop
	}
	go func() {
		for ev := range events {
			log.Warn("input device changed during capture; restart to pick it up",
				zap.String("action", ev.Action),
				zap.String("name", ev.Name),
				zap.String("devpath", ev.DevPath))
		}
	}()
	return w.Stop
}
