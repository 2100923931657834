package schedule

import (
	"container/heap"
	"time"
)

// entry 调度器持有的提醒内存视图，到期即投递
type entry struct {
	publicID int64
	chatID   string
	message  string
	dueAt    time.Time
	timezone string
}

// dueHeap 按到期时间的最小堆，同到期按 ID 先后
type dueHeap []*entry

func (h dueHeap) Len() int { return len(h) }

func (h dueHeap) Less(i, j int) bool {
	if h[i].dueAt.Equal(h[j].dueAt) {
		return h[i].publicID < h[j].publicID
	}
	return h[i].dueAt.Before(h[j].dueAt)
}

func (h dueHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *dueHeap) Push(x interface{}) {
	*h = append(*h, x.(*entry))
}

func (h *dueHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

func (h dueHeap) peek() *entry {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

var _ heap.Interface = (*dueHeap)(nil)
