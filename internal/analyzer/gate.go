package analyzer

import (
	"time"
)

// 拒绝原因
const (
	ReasonCooldown   = "cooldown"
	ReasonTooShort   = "too_short"
	ReasonEmojiFlood = "emoji_flood"
	ReasonLowQuality = "low_quality"
	ReasonBot        = "bot_author"
)

const (
	minTextLength   = 3
	floodEmojiCount = 10
	floodMaxTextLen = 10
	minAwardQuality = 1.0
)

// GateInput 判定是否发放积分所需的上下文
type GateInput struct {
	Profile Profile
	// LastAwardAt 为 nil 表示从未获得过积分
	LastAwardAt *time.Time
	Now         time.Time
	IsBot       bool
}

// Verdict 判定结果；Eligible 为 false 时 Reasons 非空
type Verdict struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Gate 积分发放闸门，各条规则相互独立，任一不满足即拒绝
type Gate struct {
	Cooldown time.Duration
}

func NewGate(cooldown time.Duration) Gate { return Gate{Cooldown: cooldown} }

// Evaluate 返回全部未通过的规则
func (g Gate) Evaluate(in GateInput) Verdict {
	var reasons []string

	if in.IsBot {
		reasons = append(reasons, ReasonBot)
	}
	if g.InCooldown(in.LastAwardAt, in.Now) {
		reasons = append(reasons, ReasonCooldown)
	}
	if in.Profile.HasText && in.Profile.TextLength < minTextLength {
		reasons = append(reasons, ReasonTooShort)
	}
	if in.Profile.EmojiCount > floodEmojiCount && in.Profile.TextLength < floodMaxTextLen {
		reasons = append(reasons, ReasonEmojiFlood)
	}
	if QualityScore(in.Profile) < minAwardQuality {
		reasons = append(reasons, ReasonLowQuality)
	}

	return Verdict{Eligible: len(reasons) == 0, Reasons: reasons}
}

// ShouldAward 仅返回是否通过
func (g Gate) ShouldAward(in GateInput) bool {
	return g.Evaluate(in).Eligible
}

// InCooldown 距上次获得积分是否不足冷却时长
func (g Gate) InCooldown(lastAward *time.Time, now time.Time) bool {
	if lastAward == nil || g.Cooldown <= 0 {
		return false
	}
	return now.Sub(*lastAward) < g.Cooldown
}
