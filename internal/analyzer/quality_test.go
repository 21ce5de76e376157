package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplierTextAndLink(t *testing.T) {
	text := "see https://example.com/abcdef"
	p := Classify(text, nil)
	require.Equal(t, 30, p.TextLength)
	require.Equal(t, TypeLinkShare, p.MessageType)
	require.Zero(t, p.EmojiCount)

	assert.InDelta(t, 1.4, Multiplier(p), 1e-9)
	assert.EqualValues(t, 14, AwardPoints(10, p))
	assert.EqualValues(t, 1, AwardPoints(1, p))
	assert.InDelta(t, 6.0, QualityScore(p), 1e-9)
}

func TestMultiplierPenalties(t *testing.T) {
	short := Classify("ok", nil)
	assert.InDelta(t, 0.5, Multiplier(short), 1e-9)
	assert.EqualValues(t, 5, AwardPoints(10, short))

	flood := Classify("😀😀😀😀😀😀", nil)
	require.Equal(t, 6, flood.EmojiCount)
	require.Equal(t, 6, flood.TextLength)
	// (1.0 + 0.1) * 0.7
	assert.InDelta(t, 0.77, Multiplier(flood), 1e-9)
	assert.EqualValues(t, 7, AwardPoints(10, flood))
}

func TestMultiplierUpperTiers(t *testing.T) {
	long := Classify("this message is definitely longer than fifty characters in total", nil)
	assert.InDelta(t, 1.3, Multiplier(long), 1e-9)

	img := Classify("", []Attachment{{ContentType: "image/png"}})
	// 1.0 + 0.2 图片 + 0.2 类型加成
	assert.InDelta(t, 1.4, Multiplier(img), 1e-9)
	assert.InDelta(t, 5.0, QualityScore(img), 1e-9)
}

func TestMultiplierBounds(t *testing.T) {
	for _, p := range []Profile{
		{},
		{TextLength: 100, HasText: true, HasEmojis: true, EmojiCount: 2, HasLinks: true, LinkCount: 1, HasImages: true, ImageCount: 3, MessageType: TypeImageUpload},
		{HasEmojis: true, EmojiCount: 40, TextLength: 2, HasText: true, MessageType: TypeEmojiRich},
	} {
		m := Multiplier(p)
		assert.GreaterOrEqual(t, m, 0.1)
		assert.LessOrEqual(t, m, 2.0)
	}
}

func TestQualityScoreBounds(t *testing.T) {
	assert.Zero(t, QualityScore(Profile{}))
	assert.Zero(t, QualityScore(Profile{HasEmojis: true, EmojiCount: 8}))

	maxed := Profile{HasText: true, TextLength: 500, HasEmojis: true, EmojiCount: 1, HasLinks: true, HasImages: true}
	assert.InDelta(t, 20.0, QualityScore(maxed), 1e-9)
}

func TestAwardPointsNonPositiveBase(t *testing.T) {
	p := Classify("a perfectly normal sentence", nil)
	assert.Zero(t, AwardPoints(0, p))
	assert.Zero(t, AwardPoints(-5, p))
}
