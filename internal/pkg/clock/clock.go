package clock

import "time"

// Clock 把时间作为可注入依赖，调度和租约逻辑依赖它而不是 time.Now，
// 这样窗口计算在测试里是完全确定的。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem 返回基于 time.Now 的时钟。
func NewSystem() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

type fixedClock struct {
	now time.Time
}

// NewFixed 返回一个永远指向同一时刻的时钟（测试用）。
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t.UTC()}
}

func (f fixedClock) Now() time.Time {
	return f.now
}
