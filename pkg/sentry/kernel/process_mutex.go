package kernel

import (
	"reflect"

	"github.com/tinykernel/procsched/pkg/sync"
	"github.com/tinykernel/procsched/pkg/sync/locking"
)

// processMutex is sync.Mutex with the lock-order validator. Every process
// slot embeds one; it guards state, chan, killed, xstate, and the
// scheduling fields read or written outside the scheduler lock (spec.md
// §5, lock 2). The rule "never hold two process locks simultaneously" is
// enforced by the validator treating every processMutex instance as the
// same class.
type processMutex struct {
	mu sync.Mutex
}

var processMutexClass = locking.NewMutexClass(reflect.TypeOf(processMutex{}), locking.OrderProcess)

// Lock locks m.
func (m *processMutex) Lock() {
	locking.AddGLock(processMutexClass)
	m.mu.Lock()
}

// Unlock unlocks m.
func (m *processMutex) Unlock() {
	locking.DelGLock(processMutexClass)
	m.mu.Unlock()
}
