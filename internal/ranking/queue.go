package ranking

import (
	"time"

	"arcade-arena/internal/domain"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
)

// WaitQueue is one game's FIFO matchmaking line. Fairness is join
// order only; there is no priority or aging.
type WaitQueue struct {
	entries *doublylinkedlist.List
}

func NewWaitQueue() *WaitQueue {
	return &WaitQueue{entries: doublylinkedlist.New()}
}

func (q *WaitQueue) Enqueue(playerID int) {
	q.entries.Add(domain.QueueEntry{PlayerID: playerID, JoinedAt: time.Now()})
}

// Requeue puts a previously dequeued entry back at the tail, keeping
// its original join time.
func (q *WaitQueue) Requeue(entry domain.QueueEntry) {
	q.entries.Add(entry)
}

// Dequeue removes and returns the front entry.
func (q *WaitQueue) Dequeue() (domain.QueueEntry, bool) {
	v, ok := q.entries.Get(0)
	if !ok {
		return domain.QueueEntry{}, false
	}
	q.entries.Remove(0)
	return v.(domain.QueueEntry), true
}

// RemoveByID drops the entry for playerID wherever it sits in line.
func (q *WaitQueue) RemoveByID(playerID int) bool {
	it := q.entries.Iterator()
	for it.Next() {
		if it.Value().(domain.QueueEntry).PlayerID == playerID {
			q.entries.Remove(it.Index())
			return true
		}
	}
	return false
}

func (q *WaitQueue) Contains(playerID int) bool {
	it := q.entries.Iterator()
	for it.Next() {
		if it.Value().(domain.QueueEntry).PlayerID == playerID {
			return true
		}
	}
	return false
}

func (q *WaitQueue) Size() int {
	return q.entries.Size()
}
