package cache

const (
	LOCAL = "local"
)

// Cache 缓存定义接口
type Cache interface {
	// Mode 获取缓存实例的模式
	Mode() string

	// Get 根据键获取缓存数据
	// 返回: 缓存值、是否存在标志
	Get(key string) (interface{}, bool)

	// GetBytes 获取字节数组缓存数据,类型不符视为不存在
	GetBytes(key string) ([]byte, bool)

	// Put 写入缓存,expire为过期秒数,不传使用默认过期时间
	Put(key string, input interface{}, expire ...int)

	// Del 删除指定键
	Del(keys ...string)

	// Exists 判断键是否存在
	Exists(key string) bool

	// Size 当前缓存条目数量
	Size() int

	// Flush 清空缓存
	Flush()
}
