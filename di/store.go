package di

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// qualifiedKey 限定共享实例的复合键。
type qualifiedKey struct {
	id        uint64
	qualifier any
}

// creation 一次进行中的共享实例构造。
type creation struct {
	gid  int64
	done chan struct{}
}

// sharedInstanceStore 每作用域的共享实例缓存。
// 读取无锁（sync.Map）；每个键同一时刻至多一个创建者，
// 竞争者等待赢家完成后重读。
type sharedInstanceStore struct {
	// byID 无限定键的共享实例：注册 ID -> 实例
	byID sync.Map

	// byQualified 带限定键的共享实例：(注册 ID, 限定键) -> 实例
	byQualified sync.Map

	// creating 正在构造中的键 -> *creation。
	// 同一 goroutine 在构造期间再次请求同一个键即为自构造。
	creating sync.Map
}

func newSharedInstanceStore() *sharedInstanceStore {
	return &sharedInstanceStore{}
}

// TryGet 无锁读取无限定键的共享实例。
func (s *sharedInstanceStore) TryGet(id uint64) (any, bool) {
	return s.byID.Load(id)
}

// TryGetQualified 无锁读取限定共享实例。
// qualifier 为 nil 时退化为单键读取。
func (s *sharedInstanceStore) TryGetQualified(id uint64, qualifier any) (any, bool) {
	if qualifier == nil {
		return s.TryGet(id)
	}
	return s.byQualified.Load(qualifiedKey{id: id, qualifier: qualifier})
}

// GetOrCreate 双重检查的获取或创建。
// 无锁读取命中则直接返回；未命中时抢占该键的构造权、重读、仍缺失才
// 调用 creator。竞争失败的 goroutine 阻塞到赢家完成后重读。若 creator
// 在自身构造期间又递归请求同一个键（同一 goroutine），报
// SelfConstructingDependencyError 而不是死锁。
// creator 返回 nil 实例时不记录共享。
func (s *sharedInstanceStore) GetOrCreate(id uint64, qualifier any, creator func() (any, error)) (any, error) {
	key := qualifiedKey{id: id, qualifier: qualifier}
	gid := goroutineID()

	for {
		if v, ok := s.loadKey(key); ok {
			return v, nil
		}

		c := &creation{gid: gid, done: make(chan struct{})}
		actual, raced := s.creating.LoadOrStore(key, c)
		if raced {
			inProgress := actual.(*creation)
			if inProgress.gid == gid {
				// 激活器在自身构造期间重入了同一个键
				return nil, &SelfConstructingDependencyError{
					Registration: "registration " + strconv.FormatUint(id, 10),
				}
			}
			// 等待赢家完成后重读；赢家失败时由下一轮接手构造
			<-inProgress.done
			continue
		}

		instance, err := s.create(key, c, creator)
		return instance, err
	}
}

// create 以当前 goroutine 为该键的唯一创建者执行构造。
func (s *sharedInstanceStore) create(key qualifiedKey, c *creation, creator func() (any, error)) (any, error) {
	defer func() {
		s.creating.Delete(key)
		close(c.done)
	}()

	// 抢占构造权与上一次读取之间，前一个赢家可能恰好完成
	if v, ok := s.loadKey(key); ok {
		return v, nil
	}

	instance, err := creator()
	if err != nil {
		return nil, err
	}
	if instance == nil {
		// 管线短路未产生实例，不记录共享
		return nil, nil
	}

	if _, loaded := s.storeKey(key, instance); loaded {
		// 持有构造权期间不可能有第三方插入
		return nil, &SelfConstructingDependencyError{
			Registration: "registration " + strconv.FormatUint(key.id, 10),
		}
	}
	return instance, nil
}

func (s *sharedInstanceStore) loadKey(key qualifiedKey) (any, bool) {
	if key.qualifier == nil {
		return s.byID.Load(key.id)
	}
	return s.byQualified.Load(key)
}

func (s *sharedInstanceStore) storeKey(key qualifiedKey, instance any) (any, bool) {
	if key.qualifier == nil {
		return s.byID.LoadOrStore(key.id, instance)
	}
	return s.byQualified.LoadOrStore(key, instance)
}

// clear 清空两个缓存映射。作用域释放时调用，断开作用域与自注册实例
// 之间的引用环。
func (s *sharedInstanceStore) clear() {
	s.byID.Range(func(k, _ any) bool {
		s.byID.Delete(k)
		return true
	})
	s.byQualified.Range(func(k, _ any) bool {
		s.byQualified.Delete(k)
		return true
	})
}

// goroutineID 返回当前 goroutine 的 ID，用于自构造检测。
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	idField := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(idField, 10, 64)
	return id
}
