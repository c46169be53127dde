package model

import (
	"strconv"
	"strings"
	"time"
)

// DeviceID xinput 分配的设备编号
type DeviceID uint8

func (id DeviceID) String() string {
	return strconv.Itoa(int(id))
}

// EventLine 一条带时间戳的原始事件行
type EventLine struct {
	Timestamp uint64 // 微秒, Unix epoch
	Raw       string // 外部进程输出的原始行, 原样保留
}

// String 序列化为 "<ts> <raw>\n"
func (e EventLine) String() string {
	var b strings.Builder
	b.Grow(len(e.Raw) + 22)
	b.WriteString(strconv.FormatUint(e.Timestamp, 10))
	b.WriteByte(' ')
	b.WriteString(e.Raw)
	if !strings.HasSuffix(e.Raw, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// Micros 把时间转换为日志使用的微秒时间戳
func Micros(t time.Time) uint64 {
	return uint64(t.UnixMicro())
}

// DeviceEvent 输入设备热插拔事件
type DeviceEvent struct {
	Action    string // "add", "remove"
	Name      string // e.g., Keychron K2
	DevPath   string // e.g., /devices/.../input/input23
	TimeStamp time.Time
}
