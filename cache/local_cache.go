package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalMapManager 使用go-cache的本地缓存管理器
type LocalMapManager struct {
	cache *gocache.Cache // go-cache实例，线程安全
}

// 默认配置常量
const (
	defaultExpiration = 5 * time.Minute  // 默认过期时间5分钟
	cleanupInterval   = 10 * time.Minute // 清理间隔10分钟
)

// NewLocalCache 创建新的go-cache缓存实例
// a: 默认过期时间（分钟），b: 清理间隔（分钟）,小于等于0使用默认值
func NewLocalCache(a, b int) Cache {
	defaultExp := defaultExpiration
	cleanupInt := cleanupInterval
	if a > 0 {
		defaultExp = time.Duration(a) * time.Minute
	}
	if b > 0 {
		cleanupInt = time.Duration(b) * time.Minute
	}
	return &LocalMapManager{cache: gocache.New(defaultExp, cleanupInt)}
}

func (self *LocalMapManager) Mode() string {
	return LOCAL
}

func (self *LocalMapManager) Get(key string) (interface{}, bool) {
	v, b := self.cache.Get(key)
	if !b || v == nil {
		return nil, false
	}
	return v, true
}

func (self *LocalMapManager) GetBytes(key string) ([]byte, bool) {
	v, b := self.cache.Get(key)
	if !b || v == nil {
		return nil, false
	}
	ret, check := v.([]byte)
	return ret, check
}

func (self *LocalMapManager) Put(key string, input interface{}, expire ...int) {
	if len(expire) > 0 && expire[0] > 0 {
		self.cache.Set(key, input, time.Duration(expire[0])*time.Second)
		return
	}
	self.cache.Set(key, input, gocache.DefaultExpiration)
}

func (self *LocalMapManager) Del(keys ...string) {
	for _, k := range keys {
		self.cache.Delete(k)
	}
}

func (self *LocalMapManager) Exists(key string) bool {
	_, b := self.cache.Get(key)
	return b
}

func (self *LocalMapManager) Size() int {
	return self.cache.ItemCount()
}

func (self *LocalMapManager) Flush() {
	self.cache.Flush()
}
