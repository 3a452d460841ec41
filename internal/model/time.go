package model

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime 以本地时区、微秒精度的 ISO-8601 格式（不带时区后缀）序列化时间。
type LocalTime time.Time

const timeFormat = "2006-01-02T15:04:05.000000"

// Now 返回当前时间的 LocalTime。
func Now() LocalTime {
	return LocalTime(time.Now())
}

// Time 返回底层的 time.Time。
func (t LocalTime) Time() time.Time {
	return time.Time(t)
}

func (t LocalTime) String() string {
	return time.Time(t).Format(timeFormat)
}

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("\"%s\"", t.String())), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), "\"")
	if s == "" || s == "null" {
		return nil
	}
	parsed, err := time.ParseInLocation(timeFormat, s, time.Local)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", s, err)
	}
	*t = LocalTime(parsed)
	return nil
}
