//go:build !linux

package watcher

import "github.com/Hara602/tila/internal/model"

type noopWatcher struct{}

func newWatcher() InputWatcher                                { return noopWatcher{} }
func (noopWatcher) Start() (<-chan model.DeviceEvent, error) { return nil, nil }
func (noopWatcher) Stop()                                    {}
