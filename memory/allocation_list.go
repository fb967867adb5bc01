package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/renderer/internal/utils"
)

type allocationList struct {
	mutex utils.OptionalRWMutex

	count              int
	allocationListHead *Allocation
	allocationListTail *Allocation
}

func (l *allocationList) Init(useMutex bool) {
	l.mutex = utils.OptionalRWMutex{UseMutex: useMutex}
}

func (l *allocationList) Validate() error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	declaredCount := l.count
	actualCount := 0

	var prev *Allocation
	for alloc := l.allocationListHead; alloc != nil; alloc = alloc.next {
		if alloc.prev != prev {
			return errors.New("allocation list back-link does not match the previous allocation")
		}
		if alloc.freed {
			return errors.New("a freed allocation is still registered")
		}
		prev = alloc
		actualCount++
	}

	if prev != l.allocationListTail {
		return errors.New("allocation list tail does not match the last allocation")
	}

	if declaredCount != actualCount {
		return errors.Newf("the listed number of allocations in the list (%d) does not match the actual number of allocations (%d)", declaredCount, actualCount)
	}

	return nil
}

func (l *allocationList) BuildStatsString(writer *jwriter.Writer) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	s := writer.Array()
	defer s.End()

	for alloc := l.allocationListHead; alloc != nil; alloc = alloc.next {
		o := s.Object()
		alloc.PrintParameters(&o)
		o.End()
	}
}

func (l *allocationList) Count() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.count
}

func (l *allocationList) IsEmpty() bool {
	return l.Count() == 0
}

func (l *allocationList) Register(alloc *Allocation) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.count == 0 {
		l.allocationListHead = alloc
		l.allocationListTail = alloc
		l.count = 1
		return
	}

	alloc.prev = l.allocationListTail
	l.allocationListTail.next = alloc
	l.allocationListTail = alloc
	l.count++
}

func (l *allocationList) Unregister(alloc *Allocation) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if alloc.prev != nil {
		alloc.prev.next = alloc.next
	} else {
		l.allocationListHead = alloc.next
	}

	if alloc.next != nil {
		alloc.next.prev = alloc.prev
	} else {
		l.allocationListTail = alloc.prev
	}

	alloc.next = nil
	alloc.prev = nil
	l.count--
}
