package analyzer

// Style 用户互动风格
type Style string

const (
	StyleTextFocused       Style = "text_focused"
	StyleEmojiExpressive   Style = "emoji_expressive"
	StyleLinkSharer        Style = "link_sharer"
	StyleVisualContributor Style = "visual_contributor"
	StyleBalanced          Style = "balanced"
)

// TypeCounts 各类型消息数
type TypeCounts struct {
	Text  int64 `json:"text"`
	Emoji int64 `json:"emoji"`
	Link  int64 `json:"link"`
	Image int64 `json:"image"`
}

func (c TypeCounts) Total() int64 { return c.Text + c.Emoji + c.Link + c.Image }

// Add 按消息类型累加
func (c *TypeCounts) Add(t MessageType, n int64) {
	switch t {
	case TypeTextOnly:
		c.Text += n
	case TypeEmojiRich:
		c.Emoji += n
	case TypeLinkShare:
		c.Link += n
	case TypeImageUpload:
		c.Image += n
	}
}

// ClassifyStyle 按比例阈值依次判定，首个命中即返回
func ClassifyStyle(c TypeCounts, avgTextLength float64) Style {
	total := c.Total()
	if total <= 0 {
		return StyleBalanced
	}
	ratio := func(n int64) float64 { return float64(n) / float64(total) }

	switch {
	case ratio(c.Text) >= 0.7 && avgTextLength >= 20:
		return StyleTextFocused
	case ratio(c.Emoji) >= 0.4:
		return StyleEmojiExpressive
	case ratio(c.Link) >= 0.3:
		return StyleLinkSharer
	case ratio(c.Image) >= 0.2:
		return StyleVisualContributor
	default:
		return StyleBalanced
	}
}

// ContentDiversity 使用过的消息类型占比（百分数）
func ContentDiversity(c TypeCounts) float64 {
	if c.Total() == 0 {
		return 0
	}
	used := 0
	for _, n := range []int64{c.Text, c.Emoji, c.Link, c.Image} {
		if n > 0 {
			used++
		}
	}
	return float64(used) / 4 * 100
}

// ActivityLevel 按总消息数划分活跃度
func ActivityLevel(totalMessages int64) string {
	switch {
	case totalMessages < 10:
		return "new"
	case totalMessages < 50:
		return "casual"
	case totalMessages < 200:
		return "active"
	case totalMessages < 500:
		return "regular"
	default:
		return "power_user"
	}
}
