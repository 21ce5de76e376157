package service

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Deduper 在时间窗口内拒绝重复投递的消息 ID
type Deduper interface {
	// Claim 首次出现返回 true
	Claim(id string) bool
}

// DedupWindow 带 TTL 的有界集合，过期项由后台清理
type DedupWindow struct {
	items  *gocache.Cache
	window time.Duration
}

func NewDedupWindow(window time.Duration) *DedupWindow {
	if window <= 0 {
		window = 60 * time.Second
	}
	cleanup := window / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}
	return &DedupWindow{items: gocache.New(window, cleanup), window: window}
}

func (d *DedupWindow) Claim(id string) bool {
	return d.items.Add(id, struct{}{}, gocache.DefaultExpiration) == nil
}

// Len 当前窗口内的 ID 数（含尚未清理的过期项）
func (d *DedupWindow) Len() int { return d.items.ItemCount() }

func (d *DedupWindow) Window() time.Duration { return d.window }
