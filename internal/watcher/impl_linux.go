//go:build linux

package watcher

import (
	"time"

	"github.com/Hara602/tila/internal/model"
	"github.com/Hara602/tila/internal/sysutil"
	"github.com/pilebones/go-udev/netlink"
	"go.uber.org/zap"
)

type linuxWatcher struct {
	events chan model.DeviceEvent
	stop   chan struct{}
}

func newWatcher() InputWatcher {
	return &linuxWatcher{
		events: make(chan model.DeviceEvent, 10),
		stop:   make(chan struct{}),
	}
}

func (w *linuxWatcher) Start() (<-chan model.DeviceEvent, error) {
	// 连接 NETLINK_KOBJECT_UEVENT, 接收 udev 处理后的事件
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	queue := make(chan netlink.UEvent)
	errChan := make(chan error)

	quit := conn.Monitor(queue, errChan, nil)

	go func() {
		defer conn.Close()
		defer close(w.events)

		for {
			select {
			case <-w.stop:
				close(quit)
				return

			case err := <-errChan:
				// 底层网络错误不影响采集, 记录后继续
				sysutil.Log.Debug("uevent monitor error", zap.Error(err))
				continue

			case uevent := <-queue:
				ev, ok := FromUEvent(string(uevent.Action), uevent.Env)
				if !ok {
					continue
				}
				ev.TimeStamp = time.Now()
				select {
				case w.events <- ev:
				case <-w.stop:
					close(quit)
					return
				}
			}
		}
	}()
	return w.events, nil
}

func (w *linuxWatcher) Stop() {
	close(w.stop)
}
