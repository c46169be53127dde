package watcher

import "github.com/Hara602/tila/internal/model"

// InputWatcher 监听输入设备的热插拔
type InputWatcher interface {
	Start() (<-chan model.DeviceEvent, error)
	Stop()
}

func New() InputWatcher {
	return newWatcher()
}

// FromUEvent 把 uevent 的环境变量转换成 DeviceEvent, 非 input 子系统或无关动作返回 false
func FromUEvent(action string, env map[string]string) (model.DeviceEvent, bool) {
	if env["SUBSYSTEM"] != "input" {
		return model.DeviceEvent{}, false
	}
	if action != "add" && action != "remove" {
		return model.DeviceEvent{}, false
	}
	// 只关心 inputN 本身, eventN / mouseN 等节点会重复上报
	name, ok := env["NAME"]
	if !ok {
		return model.DeviceEvent{}, false
	}
	return model.DeviceEvent{
		Action:  action,
		Name:    trimQuotes(name),
		DevPath: env["DEVPATH"],
	}, true
}

func trimQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
