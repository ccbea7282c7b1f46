package kernel

import (
	"reflect"

	"github.com/tinykernel/procsched/pkg/sync"
	"github.com/tinykernel/procsched/pkg/sync/locking"
)

// waitMutex is sync.Mutex with the lock-order validator. It guards parent
// links and the wait/exit rendezvous (spec.md §5, lock 1) and must be held
// before acquiring any processMutex.
type waitMutex struct {
	mu sync.Mutex
}

var waitMutexClass = locking.NewMutexClass(reflect.TypeOf(waitMutex{}), locking.OrderWait)

// Lock locks m.
func (m *waitMutex) Lock() {
	locking.AddGLock(waitMutexClass)
	m.mu.Lock()
}

// Unlock unlocks m.
func (m *waitMutex) Unlock() {
	locking.DelGLock(waitMutexClass)
	m.mu.Unlock()
}
