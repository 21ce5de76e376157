package analyzer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MessageType 消息主类型，按 图片 > 链接 > 表情 > 文字 的优先级判定
type MessageType string

const (
	TypeTextOnly    MessageType = "text_only"
	TypeEmojiRich   MessageType = "emoji_rich"
	TypeLinkShare   MessageType = "link_share"
	TypeImageUpload MessageType = "image_upload"
)

// EmojiKind 表情来源
type EmojiKind string

const (
	EmojiUnicode EmojiKind = "unicode"
	EmojiCustom  EmojiKind = "custom"
)

// emojiRichThreshold 至少多少个表情才算 emoji_rich
const emojiRichThreshold = 3

// Emoji 消息中出现的一次表情
type Emoji struct {
	Kind EmojiKind `json:"kind"`
	Name string    `json:"name"`
	// 平台自定义表情 ID；短代码形式时为空
	ID string `json:"id,omitempty"`
}

// Attachment 附件元数据
type Attachment struct {
	ContentType string `json:"content_type"`
	Filename    string `json:"filename,omitempty"`
}

// Profile 单条消息的内容画像，由 Classify 一次性生成，之后只读
type Profile struct {
	HasText     bool        `json:"has_text"`
	TextLength  int         `json:"text_length"`
	HasEmojis   bool        `json:"has_emojis"`
	EmojiCount  int         `json:"emoji_count"`
	Emojis      []Emoji     `json:"emojis"`
	HasLinks    bool        `json:"has_links"`
	LinkCount   int         `json:"link_count"`
	Links       []string    `json:"links"`
	HasImages   bool        `json:"has_images"`
	ImageCount  int         `json:"image_count"`
	MessageType MessageType `json:"message_type"`
}

var (
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	customPattern    = regexp.MustCompile(`<a?:(\w+):(\d+)>`)
	shortcodePattern = regexp.MustCompile(`:([a-zA-Z0-9_]+):`)
)

// Classify 分析消息正文与附件
func Classify(text string, attachments []Attachment) Profile {
	p := Profile{}

	if text != "" {
		p.HasText = true
		p.TextLength = utf8.RuneCountInString(text)
	}

	p.Emojis = ExtractEmojis(text)
	p.EmojiCount = len(p.Emojis)
	p.HasEmojis = p.EmojiCount > 0

	p.Links = ExtractLinks(text)
	p.LinkCount = len(p.Links)
	p.HasLinks = p.LinkCount > 0

	for _, a := range attachments {
		if strings.HasPrefix(strings.ToLower(a.ContentType), "image/") {
			p.ImageCount++
		}
	}
	p.HasImages = p.ImageCount > 0

	p.MessageType = classifyType(p)
	return p
}

func classifyType(p Profile) MessageType {
	switch {
	case p.HasImages:
		return TypeImageUpload
	case p.HasLinks:
		return TypeLinkShare
	case p.EmojiCount >= emojiRichThreshold:
		return TypeEmojiRich
	default:
		// 混合内容一律归为文字
		return TypeTextOnly
	}
}

// ExtractLinks 返回正文中的 http(s) 链接，保持出现顺序
func ExtractLinks(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern.FindAllString(text, -1)
}

// ExtractEmojis 依次提取自定义表情标记、:短代码: 与 Unicode 表情。
// 同一表情重复出现时保留每一次。
func ExtractEmojis(text string) []Emoji {
	if text == "" {
		return nil
	}
	var out []Emoji

	markupNames := make(map[string]struct{})
	for _, m := range customPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, Emoji{Kind: EmojiCustom, Name: m[1], ID: m[2]})
		markupNames[m[1]] = struct{}{}
	}
	work := customPattern.ReplaceAllString(text, " ")

	for _, m := range shortcodePattern.FindAllStringSubmatch(work, -1) {
		// 与标记同名的短代码视为该标记的说明文字
		if _, dup := markupNames[m[1]]; dup {
			continue
		}
		out = append(out, Emoji{Kind: EmojiCustom, Name: m[1]})
	}
	work = shortcodePattern.ReplaceAllString(work, " ")

	for _, cluster := range unicodeEmojis(work) {
		out = append(out, Emoji{Kind: EmojiUnicode, Name: cluster})
	}
	return out
}

// Summary 一行内容摘要
func Summary(p Profile) string {
	parts := make([]string, 0, 4)
	if p.HasText {
		parts = append(parts, fmt.Sprintf("text: %d chars", p.TextLength))
	}
	if p.HasEmojis {
		parts = append(parts, fmt.Sprintf("emojis: %d", p.EmojiCount))
	}
	if p.HasLinks {
		parts = append(parts, fmt.Sprintf("links: %d", p.LinkCount))
	}
	if p.HasImages {
		parts = append(parts, fmt.Sprintf("images: %d", p.ImageCount))
	}
	return strings.Join(parts, " | ")
}
