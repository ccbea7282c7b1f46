package kernel

import (
	"reflect"

	"github.com/tinykernel/procsched/pkg/sync"
	"github.com/tinykernel/procsched/pkg/sync/locking"
)

// pidMutex is sync.Mutex with the lock-order validator. It guards the pid
// counter (spec.md §5, lock 4) and, like schedMutex, is a leaf.
type pidMutex struct {
	mu sync.Mutex
}

var pidMutexClass = locking.NewMutexClass(reflect.TypeOf(pidMutex{}), locking.OrderPID)

// Lock locks m.
func (m *pidMutex) Lock() {
	locking.AddGLock(pidMutexClass)
	m.mu.Lock()
}

// Unlock unlocks m.
func (m *pidMutex) Unlock() {
	locking.DelGLock(pidMutexClass)
	m.mu.Unlock()
}
