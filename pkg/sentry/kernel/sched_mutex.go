package kernel

import (
	"reflect"

	"github.com/tinykernel/procsched/pkg/sync"
	"github.com/tinykernel/procsched/pkg/sync/locking"
)

// schedMutex is sync.Mutex with the lock-order validator. It guards the
// ready heap and the policy record (spec.md §5, lock 3) and is a leaf:
// nothing else may be acquired while holding it.
type schedMutex struct {
	mu sync.Mutex
}

var schedMutexClass = locking.NewMutexClass(reflect.TypeOf(schedMutex{}), locking.OrderScheduler)

// Lock locks m.
func (m *schedMutex) Lock() {
	locking.AddGLock(schedMutexClass)
	m.mu.Lock()
}

// Unlock unlocks m.
func (m *schedMutex) Unlock() {
	locking.DelGLock(schedMutexClass)
	m.mu.Unlock()
}
