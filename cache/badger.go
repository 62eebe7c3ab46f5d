package cache

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	speech "github.com/getcharzp/go-kittentts"
)

// Badger 基于 BadgerDB 的持久化存储
type Badger struct {
	db *badger.DB
}

// BadgerOptions BadgerDB 参数
type BadgerOptions struct {
	// Dir 数据目录，InMemory 为 false 时必填
	Dir string

	// InMemory 仅内存模式，用于测试
	InMemory bool
}

// NewBadger 打开 BadgerDB
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, speech.NewError(speech.KindInvalidArgument, "cache dir", errors.New("磁盘模式需要指定目录"))
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{})
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, speech.NewError(speech.KindIO, opts.Dir, err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *Badger) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger 将 badger 日志转到 logrus，屏蔽 info/debug
type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { speech.Log("badger").Errorf(f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { speech.Log("badger").Warnf(f, v...) }
func (badgerLogger) Infof(string, ...interface{})        {}
func (badgerLogger) Debugf(string, ...interface{})       {}
