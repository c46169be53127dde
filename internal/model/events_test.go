package model

import (
	"testing"
	"time"
)

func TestEventLineString(t *testing.T) {
	cases := []struct {
		name string
		line EventLine
		want string
	}{
		{"newline kept", EventLine{Timestamp: 1652024669524708, Raw: "key press 24\n"}, "1652024669524708 key press 24\n"},
		{"newline added", EventLine{Timestamp: 7, Raw: "key release 30"}, "7 key release 30\n"},
		{"raw verbatim", EventLine{Timestamp: 1, Raw: "key press   36   \n"}, "1 key press   36   \n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.line.String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMicros(t *testing.T) {
	ts := time.Date(2022, 5, 8, 15, 44, 29, 524708000, time.UTC)
	if got := Micros(ts); got != 1652024669524708 {
		t.Fatalf("Micros() = %d", got)
	}
}

func TestDeviceIDString(t *testing.T) {
	if got := DeviceID(17).String(); got != "17" {
		t.Fatalf("String() = %q", got)
	}
}
