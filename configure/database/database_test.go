package database

import (
	"testing"

	"github.com/gocrud/container/configure/web"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testModel struct {
	ID   uint
	Name string
}

func testLogger() logging.Logger {
	return logging.NewLoggingBuilder().
		SetMinimumLevel(logging.LogLevelFatal).
		AddProvider(logging.NewMemoryProvider()).
		Build().
		CreateLogger("test")
}

func TestOptionsValidation(t *testing.T) {
	assert.Error(t, NewDefaultOptions("", sqlite.Open(":memory:")).Validate())
	assert.Error(t, NewDefaultOptions("main", nil).Validate())
	assert.NoError(t, NewDefaultOptions("main", sqlite.Open(":memory:")).Validate())
}

func TestFactoryRegisterAndClose(t *testing.T) {
	factory := NewDatabaseFactory()

	opts := NewDefaultOptions("main", sqlite.Open(":memory:"))
	opts.AutoMigrate = []any{&testModel{}}
	require.NoError(t, factory.Register(*opts))

	// 重名注册失败
	assert.Error(t, factory.Register(*opts))

	db, err := factory.Get("main")
	require.NoError(t, err)

	require.NoError(t, db.Create(&testModel{Name: "x"}).Error)

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.NoError(t, factory.Close())

	if _, err := factory.Get("main"); err == nil {
		t.Error("Close must drop the registered databases")
	}
}

// Session 归属最近的请求作用域：请求内共享，请求间独立
func TestSessionPerRequestScope(t *testing.T) {
	factory := NewDatabaseFactory()
	require.NoError(t, factory.Register(*NewDefaultOptions("default", sqlite.Open(":memory:"))))
	db, err := factory.Get("default")
	require.NoError(t, err)

	builder := di.NewContainerBuilder()
	di.Register[*gorm.DB](builder, di.WithValue(db))
	di.Register[*Session](builder,
		di.WithFactory(func(db *gorm.DB) *Session {
			return &Session{DB: db.Session(&gorm.Session{NewDB: true})}
		}),
		di.WithMatchingScope(web.RequestTag))
	root, err := builder.Build()
	require.NoError(t, err)
	defer factory.Close()

	request1, err := root.BeginLifetimeScope(di.WithTag(web.RequestTag))
	require.NoError(t, err)
	request2, err := root.BeginLifetimeScope(di.WithTag(web.RequestTag))
	require.NoError(t, err)

	s1a, err := di.Resolve[*Session](request1)
	require.NoError(t, err)
	s1b, err := di.Resolve[*Session](request1)
	require.NoError(t, err)
	s2, err := di.Resolve[*Session](request2)
	require.NoError(t, err)

	assert.Same(t, s1a, s1b, "one session per request scope")
	assert.NotSame(t, s1a, s2, "sibling requests get independent sessions")

	// 请求作用域之外解析失败
	_, err = di.Resolve[*Session](root)
	assert.Error(t, err)
}
