package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 时长配置值
//
// JSON 中既接受 "30m" 这样的字符串，也接受纳秒数字。
type Duration time.Duration

// Duration 返回标准库时长
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String 返回时长字符串
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON 实现 json.Marshaler 接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON 实现 json.Unmarshaler 接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("无效的时长格式 %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("无效的时长类型: %T", v)
	}
}
