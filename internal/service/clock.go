package service

import "time"

// Clock 注入当前时间，测试中可固定到任意日期
type Clock func() time.Time

func SystemClock(loc *time.Location) Clock {
	return func() time.Time {
		return time.Now().In(loc)
	}
}
