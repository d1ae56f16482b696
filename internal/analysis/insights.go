package analysis

import (
	"fmt"
	"sort"
	"strings"

	"freightcli/pkg/contracts/domain"
)

const (
	highMarginRate     = 60.0
	freightRatioHigh   = 60.0
	freightRatioMedium = 45.0
	concentrationPct   = 50.0
	starVehicleScore   = 90.0
	weeklyImbalance    = 2.0
	maxHighMarginDests = 3
)

// Insights turns the aggregates into operating suggestions. When nothing
// stands out a single positive insight is returned.
func Insights(s domain.Summaries, c domain.CostAnalysis, top []domain.VehicleRank) []domain.Insight {
	var out []domain.Insight
	add := func(kind string, level domain.InsightLevel, title, format string, args ...any) {
		out = append(out, domain.Insight{Kind: kind, Level: level, Title: title, Message: fmt.Sprintf(format, args...)})
	}

	if n := len(c.LossRoutes); n > 0 {
		add("loss_routes", domain.InsightWarning, "亏损预警",
			"发现 %d 条亏损路线，建议重点关注并优化定价或暂停发货。", n)
	}
	if n := len(c.LowProfitRoutes); n > 0 {
		add("low_profit_routes", domain.InsightNotice, "低利润提醒",
			"%d 条路线利润低于平均水平50%%，建议评估是否继续发货。", n)
	}

	var high []string
	for _, d := range c.Destinations {
		if d.ProfitRate > highMarginRate && len(high) < maxHighMarginDests {
			high = append(high, d.Destination)
		}
	}
	if len(high) > 0 {
		add("high_margin_destinations", domain.InsightPositive, "高利润路线",
			"%s 利润率超过60%%，建议优先发货、扩大合作。", strings.Join(high, ", "))
	}

	switch r := c.TotalFreightRatio; {
	case r > freightRatioHigh:
		add("freight_ratio", domain.InsightWarning, "运费优化",
			"总运费占比达 %.1f%%，偏高。建议与运输方谈判降低运费，或选择更优运输路线。", r)
	case r > freightRatioMedium:
		add("freight_ratio", domain.InsightNotice, "运费关注",
			"总运费占比 %.1f%%，处于中等水平，持续关注运输成本变化。", r)
	}

	if len(s.Categories) >= 2 {
		cats := append([]domain.CategorySummary(nil), s.Categories...)
		sort.SliceStable(cats, func(i, j int) bool { return cats[i].ProfitPerTon > cats[j].ProfitPerTon })
		best, worst := cats[0], cats[len(cats)-1]
		if best.ProfitPerTon > 0 {
			add("category_mix", domain.InsightNotice, "品类优化",
				"「%s」吨利润最高(%.1f元)，建议增加采购；「%s」利润较低(%.1f元)，建议调整定价策略。",
				best.Category, best.ProfitPerTon, worst.Category, worst.ProfitPerTon)
		}
	}

	if len(s.Destinations) > 0 {
		total := 0.0
		top1 := s.Destinations[0]
		for _, d := range s.Destinations {
			total += d.TotalWeight
			if d.TotalWeight > top1.TotalWeight {
				top1 = d
			}
		}
		if share := ratioPct(top1.TotalWeight, total); share > concentrationPct {
			add("destination_concentration", domain.InsightWarning, "客户集中度",
				"「%s」占总发货量 %.1f%%，风险较高。建议开拓新客户分散风险。", top1.Destination, share)
		}
	}

	if len(top) > 0 && top[0].Score >= starVehicleScore {
		add("star_vehicle", domain.InsightPositive, "骨干车辆",
			"「%s」综合评分 %.1f，表现优异！建议长期合作，给予运费优惠锁定。", top[0].Vehicle, top[0].Score)
	}

	if len(s.Weeks) > 0 {
		best, worst := s.Weeks[0], s.Weeks[0]
		for _, w := range s.Weeks {
			if w.TotalWeight > best.TotalWeight {
				best = w
			}
			if w.TotalWeight < worst.TotalWeight {
				worst = w
			}
		}
		if best.TotalWeight > worst.TotalWeight*weeklyImbalance {
			add("weekly_balance", domain.InsightNotice, "周度均衡",
				"「%s」发货最多(%.1f吨)，「%s」最少(%.1f吨)，差异较大。建议平衡各周发货量，降低仓储压力。",
				best.WeekLabel, best.TotalWeight, worst.WeekLabel, worst.TotalWeight)
		}
	}

	if len(out) == 0 {
		add("healthy", domain.InsightPositive, "运营健康", "各项指标健康，暂无明显风险。继续保持！")
	}
	return out
}
