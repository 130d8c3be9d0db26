package kafka

import "sync"

// offsetTracker следит за сообщениями, обрабатываемыми параллельно, и
// отдаёт смещение для коммита только когда обработаны все предыдущие
// сообщения партиции. Так коммит не перепрыгивает через незавершённые.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	inflight []int64 // в порядке получения, смещения возрастают
	done     map[int64]struct{}
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) track(partition int, offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[partition]
	if !ok {
		p = &partitionOffsets{done: make(map[int64]struct{})}
		t.partitions[partition] = p
	}
	p.inflight = append(p.inflight, offset)
}

// done отмечает сообщение обработанным и возвращает наибольшее смещение
// непрерывного обработанного префикса, если он сдвинулся.
func (t *offsetTracker) done(partition int, offset int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.partitions[partition]
	if !ok {
		return 0, false
	}
	p.done[offset] = struct{}{}

	var (
		last     int64
		advanced bool
	)
	for len(p.inflight) > 0 {
		head := p.inflight[0]
		if _, ok := p.done[head]; !ok {
			break
		}
		delete(p.done, head)
		p.inflight = p.inflight[1:]
		last, advanced = head, true
	}
	return last, advanced
}
