package protocol

import (
	"errors"
	"sync"
)

// ErrActionInFlight возвращается, когда такое же действие для того же
// идентификатора ещё не завершилось. Повторное нажатие при медленной сети
// не должно породить второй сетевой запрос и дубль в журнале движений.
var ErrActionInFlight = errors.New("the same action is already in flight")

// Guard отслеживает незавершённые действия по ключу {действие, id}.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard создаёт пустой guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// TryAcquire занимает ключ. Возвращает ErrActionInFlight, если ключ занят.
func (g *Guard) TryAcquire(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return ErrActionInFlight
	}
	g.active[key] = struct{}{}
	return nil
}

// Release освобождает ключ.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}
