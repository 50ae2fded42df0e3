package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// キー単位の排他。keysの順序は実装側でそろえる
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
