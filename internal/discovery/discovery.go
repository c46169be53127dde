// Package discovery 解析 xinput list 的输出, 找出要监听的设备编号
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Hara602/tila/internal/model"
)

const idMarker = "id="

var (
	// ErrMalformedID id= 后面没有合法的数字
	ErrMalformedID = errors.New("failed to parse device id")
	// ErrNoDevices 没有匹配的设备
	ErrNoDevices = errors.New("no matching input devices")
)

// Lister 设备列表来源 (默认运行 xinput list)
type Lister interface {
	List(ctx context.Context) (string, error)
}

// ListerFunc 函数适配器
type ListerFunc func(ctx context.Context) (string, error)

func (f ListerFunc) List(ctx context.Context) (string, error) { return f(ctx) }

// Discover 获取设备列表并解析出匹配 deviceName 的设备编号
func Discover(ctx context.Context, lister Lister, deviceName string) ([]model.DeviceID, error) {
	listing, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	ids, err := ParseDeviceIDs(listing, deviceName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoDevices, deviceName)
	}
	return ids, nil
}

// ParseDeviceIDs 对每个包含 deviceName (不区分大小写) 的行,
// 取最后一个 id= 之后的连续数字作为设备编号, 顺序与输入一致
func ParseDeviceIDs(listing, deviceName string) ([]model.DeviceID, error) {
	name := strings.ToLower(deviceName)
	var ids []model.DeviceID

	for _, line := range strings.Split(strings.ToLower(listing), "\n") {
		if !strings.Contains(line, name) {
			continue
		}
		pos := strings.LastIndex(line, idMarker)
		if pos < 0 {
			continue
		}
		digits := line[pos+len(idMarker):]
		end := strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' })
		if end >= 0 {
			digits = digits[:end]
		}
		n, err := strconv.ParseUint(digits, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w in line %q", ErrMalformedID, strings.TrimSpace(line))
		}
		ids = append(ids, model.DeviceID(n))
	}
	return ids, nil
}
