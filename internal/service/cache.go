// cache.go — in-memory кэши публичных справочников.
// Список филиалов и публичные объявления читаются на каждом открытии
// портала, поэтому кэшируются с TTL; любая админская мутация сбрасывает
// соответствующий кэш.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Joyboy-it/Line-price/internal/domain/model"
)

var (
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pp_cache_hits_total",
			Help: "Количество попаданий в кэш",
		},
		[]string{"cache"},
	)
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pp_cache_misses_total",
			Help: "Количество промахов кэша",
		},
		[]string{"cache"},
	)
)

// Ключи одноэлементных кэшей: весь список хранится одной записью.
const (
	branchesCacheKey      = "all"
	announcementsCacheKey = "published"
)

// BranchCache — кэш списка филиалов с TTL.
type BranchCache struct {
	lru *expirable.LRU[string, []*model.Branch]
}

// NewBranchCache создаёт кэш филиалов.
func NewBranchCache(size int, ttl time.Duration) *BranchCache {
	return &BranchCache{
		lru: expirable.NewLRU[string, []*model.Branch](size, nil, ttl),
	}
}

// Get возвращает кэшированный список филиалов.
func (c *BranchCache) Get() ([]*model.Branch, bool) {
	list, ok := c.lru.Get(branchesCacheKey)
	if ok {
		cacheHits.WithLabelValues("branches").Inc()
	} else {
		cacheMisses.WithLabelValues("branches").Inc()
	}
	return list, ok
}

// Set сохраняет список филиалов в кэш.
func (c *BranchCache) Set(list []*model.Branch) {
	c.lru.Add(branchesCacheKey, list)
}

// Invalidate сбрасывает кэш филиалов.
func (c *BranchCache) Invalidate() {
	c.lru.Remove(branchesCacheKey)
}

// AnnouncementCache — кэш опубликованных объявлений с TTL.
type AnnouncementCache struct {
	lru *expirable.LRU[string, []*model.Announcement]
}

// NewAnnouncementCache создаёт кэш объявлений.
func NewAnnouncementCache(size int, ttl time.Duration) *AnnouncementCache {
	return &AnnouncementCache{
		lru: expirable.NewLRU[string, []*model.Announcement](size, nil, ttl),
	}
}

// Get возвращает кэшированный список объявлений.
func (c *AnnouncementCache) Get() ([]*model.Announcement, bool) {
	list, ok := c.lru.Get(announcementsCacheKey)
	if ok {
		cacheHits.WithLabelValues("announcements").Inc()
	} else {
		cacheMisses.WithLabelValues("announcements").Inc()
	}
	return list, ok
}

// Set сохраняет список объявлений в кэш.
func (c *AnnouncementCache) Set(list []*model.Announcement) {
	c.lru.Add(announcementsCacheKey, list)
}

// Invalidate сбрасывает кэш объявлений.
func (c *AnnouncementCache) Invalidate() {
	c.lru.Remove(announcementsCacheKey)
}
