// internal/service/scheduling/application/dto.go
package application

import (
	"time"

	rulesdomain "dealwire/internal/service/rules/domain"
	"dealwire/internal/service/scheduling/domain"
)

// ScheduleInput 是外部打分/匹配管道送进来的候选 deal。
// Score 由上游打分公式产出，这里不解释其含义。
type ScheduleInput struct {
	ChannelID   string     `json:"channelId"`
	RuleID      string     `json:"ruleId"`
	ASIN        string     `json:"asin"`
	Title       string     `json:"title"`
	Price       float64    `json:"price"`
	OldPrice    float64    `json:"oldPrice"`
	Discount    int        `json:"discount"`
	Category    string     `json:"category"`
	DealType    string     `json:"dealType"`
	Score       float64    `json:"score"`
	DealEndTime *time.Time `json:"dealEndTime,omitempty"`
}

// Facts 把输入转成规则过滤器可见的字段集合。
func (in *ScheduleInput) Facts() map[string]interface{} {
	return map[string]interface{}{
		"asin":     in.ASIN,
		"title":    in.Title,
		"price":    in.Price,
		"oldPrice": in.OldPrice,
		"discount": in.Discount,
		"category": in.Category,
		"dealType": in.DealType,
		"score":    in.Score,
	}
}

// ScheduleResult 返回给调用方的调度结果。
type ScheduleResult struct {
	DealID       string    `json:"dealId"`
	ScheduledFor time.Time `json:"scheduledFor"`
	Reason       string    `json:"reason"`
}

// ReadyDeal 是一条到期任务及发布流水线需要的最小规则/频道上下文。
type ReadyDeal struct {
	Deal    *domain.ScheduledDeal
	Rule    *rulesdomain.PublishRule
	Channel *rulesdomain.Channel
}
