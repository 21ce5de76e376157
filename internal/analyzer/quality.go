package analyzer

const (
	maxQualityScore = 20.0

	// 倍率以千分之一为单位做定点运算
	multiplierUnit = 1000
	minMultiplier  = 100
	maxMultiplier  = 2000
)

// QualityScore 内容质量分，范围 [0, 20]
func QualityScore(p Profile) float64 {
	score := 0.0
	if p.HasText && p.TextLength > 0 {
		score += min(float64(p.TextLength)/10, 10)
	}
	if p.HasEmojis {
		score += 2
	}
	if p.HasLinks {
		score += 3
	}
	if p.HasImages {
		score += 5
	}
	// 表情刷屏扣分
	if p.EmojiCount > 5 && p.TextLength < p.EmojiCount {
		score -= 2
	}
	return max(0, min(maxQualityScore, score))
}

// Multiplier 积分倍率，范围 [0.1, 2.0]
func Multiplier(p Profile) float64 {
	return float64(multiplierMilli(p)) / multiplierUnit
}

// AwardPoints 基础积分乘以倍率后向下取整
func AwardPoints(base int64, p Profile) int64 {
	if base <= 0 {
		return 0
	}
	return base * multiplierMilli(p) / multiplierUnit
}

func multiplierMilli(p Profile) int64 {
	m := int64(multiplierUnit)

	// 只取最高一档长度加成
	switch {
	case p.TextLength > 50:
		m += 300
	case p.TextLength > 20:
		m += 200
	case p.TextLength > 10:
		m += 100
	}

	if p.HasEmojis {
		m += 100
	}
	if p.HasLinks {
		m += 100
	}
	if p.HasImages {
		m += 200
	}

	switch p.MessageType {
	case TypeImageUpload:
		m += 200
	case TypeLinkShare:
		m += 100
	}

	if p.TextLength < 3 && !p.HasImages && !p.HasLinks {
		m = m * 5 / 10
	}
	if p.EmojiCount > 5 && p.TextLength < p.EmojiCount*2 {
		m = m * 7 / 10
	}

	return max(minMultiplier, min(maxMultiplier, m))
}
