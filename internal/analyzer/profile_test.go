package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTypePriority(t *testing.T) {
	image := []Attachment{{ContentType: "image/png", Filename: "a.png"}}
	doc := []Attachment{{ContentType: "application/pdf", Filename: "a.pdf"}}

	cases := []struct {
		name        string
		text        string
		attachments []Attachment
		want        MessageType
	}{
		{"image beats link and emojis", "look https://example.com 😀😀😀😀😀", image, TypeImageUpload},
		{"link beats emojis", "https://example.com 😀😀😀", nil, TypeLinkShare},
		{"three emojis", "nice 😀😀😀", nil, TypeEmojiRich},
		{"two emojis stay text", "nice 😀😀", nil, TypeTextOnly},
		{"non image attachment", "report attached", doc, TypeTextOnly},
		{"empty", "", nil, TypeTextOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.text, tc.attachments).MessageType)
		})
	}
}

func TestClassifyCounts(t *testing.T) {
	p := Classify("你好世界 https://a.io https://b.io", []Attachment{{ContentType: "IMAGE/JPEG"}, {ContentType: "text/plain"}})

	assert.True(t, p.HasText)
	assert.Equal(t, 30, p.TextLength)
	assert.Equal(t, 2, p.LinkCount)
	assert.Equal(t, []string{"https://a.io", "https://b.io"}, p.Links)
	assert.True(t, p.HasImages)
	assert.Equal(t, 1, p.ImageCount)
	assert.False(t, p.HasEmojis)

	empty := Classify("", nil)
	assert.False(t, empty.HasText)
	assert.Zero(t, empty.TextLength)
	assert.Empty(t, empty.Emojis)
}

func TestExtractEmojisOrderAndKinds(t *testing.T) {
	got := ExtractEmojis("<:pepe:123456789> :pepe: :party_time: <a:dance:42> 😀 👍🏽 👨‍👩‍👧 🇹🇼 1️⃣ 123 #tag")

	require.Len(t, got, 8)
	assert.Equal(t, Emoji{Kind: EmojiCustom, Name: "pepe", ID: "123456789"}, got[0])
	assert.Equal(t, Emoji{Kind: EmojiCustom, Name: "dance", ID: "42"}, got[1])
	assert.Equal(t, Emoji{Kind: EmojiCustom, Name: "party_time"}, got[2])
	assert.Equal(t, Emoji{Kind: EmojiUnicode, Name: "😀"}, got[3])
	assert.Equal(t, Emoji{Kind: EmojiUnicode, Name: "👍🏽"}, got[4])
	assert.Equal(t, Emoji{Kind: EmojiUnicode, Name: "👨‍👩‍👧"}, got[5])
	assert.Equal(t, Emoji{Kind: EmojiUnicode, Name: "🇹🇼"}, got[6])
	assert.Equal(t, Emoji{Kind: EmojiUnicode, Name: "1️⃣"}, got[7])
}

func TestExtractEmojisKeepsDuplicates(t *testing.T) {
	got := ExtractEmojis("😀 hello 😀😀")
	require.Len(t, got, 3)
	for _, e := range got {
		assert.Equal(t, "😀", e.Name)
	}

	// 仅在标记中出现过的名字会吸收短代码
	got = ExtractEmojis(":wave: :wave:")
	assert.Len(t, got, 2)
}

func TestExtractEmojisIgnoresPlainText(t *testing.T) {
	assert.Empty(t, ExtractEmojis("plain text with 42 numbers # and * stars"))
	assert.Empty(t, ExtractEmojis("https://example.com/path"))
	assert.Empty(t, ExtractEmojis("✓ done"))
	assert.Empty(t, ExtractEmojis("step ➜ next ☐ ★"))

	got := ExtractEmojis("☀ ✅ ❤️ ⚽")
	require.Len(t, got, 4)
	assert.Equal(t, "❤️", got[2].Name)
}

func TestSummary(t *testing.T) {
	p := Classify("hello 😀 https://a.io", []Attachment{{ContentType: "image/gif"}})
	assert.Equal(t, "text: 20 chars | emojis: 1 | links: 1 | images: 1", Summary(p))
	assert.Equal(t, "", Summary(Classify("", nil)))
}
