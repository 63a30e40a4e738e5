package channel

import (
	"errors"
	"sync"
)

// ErrReceiverGone возвращается Send, если получатель закрыт.
// Это не фатально для отправителя: запрос просто некому обработать.
var ErrReceiverGone = errors.New("получатель запросов закрыт")

// entry - элемент обычной очереди. marker отмечает границу отмены.
type entry struct {
	req    Request
	marker bool
}

type queues struct {
	mu       sync.Mutex
	cond     *sync.Cond
	priority []Request
	regular  []entry
	closed   bool
}

// Sender отправляет запросы движку. Безопасен для вызова из любой горутины.
type Sender struct {
	q *queues
}

// Receiver получает запросы. Принадлежит только движку.
type Receiver struct {
	q *queues
}

// New создаёт связанную пару Sender/Receiver.
func New() (*Sender, *Receiver) {
	q := &queues{}
	q.cond = sync.NewCond(&q.mu)
	return &Sender{q: q}, &Receiver{q: q}
}

// Send ставит запрос в очередь без блокировки.
// Cancel кладётся в обе очереди: в приоритетной он требует выполнить отмену,
// в обычной - отмечает, до какого места выбрасывать запросы.
func (s *Sender) Send(req Request) error {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()

	if s.q.closed {
		return ErrReceiverGone
	}

	switch {
	case isCancel(req):
		s.q.regular = append(s.q.regular, entry{marker: true})
		s.q.priority = append(s.q.priority, req)
	case IsPriority(req):
		s.q.priority = append(s.q.priority, req)
	default:
		s.q.regular = append(s.q.regular, entry{req: req})
	}

	s.q.cond.Signal()
	return nil
}

// Recv блокируется до появления запроса. Приоритетная очередь всегда
// разбирается раньше обычной, внутри очереди - FIFO.
// Возвращает false, если получатель закрыт и очереди пусты.
func (r *Receiver) Recv() (Request, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	for {
		if req, ok := r.q.pop(); ok {
			return req, true
		}
		if r.q.closed {
			return nil, false
		}
		// Ложные пробуждения: состояние очередей перепроверяется в цикле
		r.q.cond.Wait()
	}
}

// TryRecv возвращает следующий запрос без блокировки.
func (r *Receiver) TryRecv() (Request, bool) {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return r.q.pop()
}

// ExecuteCancel выбрасывает обычные запросы до ближайшей метки отмены
// включительно. Возвращает true, если был выброшен хотя бы один запрос.
func (r *Receiver) ExecuteCancel() bool {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	removed := false
	for len(r.q.regular) > 0 {
		e := r.q.regular[0]
		r.q.regular[0] = entry{}
		r.q.regular = r.q.regular[1:]
		if e.marker {
			break
		}
		removed = true
	}
	return removed
}

// CancelPending сообщает, ждёт ли в приоритетной очереди Cancel.
func (r *Receiver) CancelPending() bool {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	for _, req := range r.q.priority {
		if isCancel(req) {
			return true
		}
	}
	return false
}

// Len возвращает количество ожидающих запросов (без меток отмены).
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	n := len(r.q.priority)
	for _, e := range r.q.regular {
		if !e.marker {
			n++
		}
	}
	return n
}

// Close закрывает получателя. Последующие Send вернут ErrReceiverGone,
// заблокированный Recv вернёт оставшиеся запросы, затем false.
func (r *Receiver) Close() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	r.q.closed = true
	r.q.cond.Broadcast()
}

// pop вызывается под q.mu.
func (q *queues) pop() (Request, bool) {
	if len(q.priority) > 0 {
		req := q.priority[0]
		q.priority[0] = nil
		q.priority = q.priority[1:]
		return req, true
	}

	for len(q.regular) > 0 {
		e := q.regular[0]
		q.regular[0] = entry{}
		q.regular = q.regular[1:]
		// Метка без соответствующего ExecuteCancel просто пропускается
		if e.marker {
			continue
		}
		return e.req, true
	}

	return nil, false
}

func isCancel(req Request) bool {
	_, ok := req.(Cancel)
	return ok
}
