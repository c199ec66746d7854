package client

import (
	"context"
	"sync"
	"time"
)

// State хранит то, что показывает экран: идёт ли загрузка, последняя ошибка и данные.
type State[T any] struct {
	Loading bool
	Err     error
	Data    T
}

// Loader держит состояние одного запроса. Новый вызов Load отменяет предыдущий,
// а результат устаревшего вызова отбрасывается, даже если сервер успел ответить.
type Loader[T any] struct {
	mu       sync.Mutex
	gen      uint64
	version  uint64 // растёт с каждым изменением state
	cancel   context.CancelFunc
	timer    *time.Timer
	state    State[T]
	lastCtx  context.Context
	lastFn   func(context.Context) (T, error)
	onChange func(State[T])

	// onChange вызывается по одному и только с более новыми снимками
	notifyMu  sync.Mutex
	delivered uint64
}

// NewLoader; onChange вызывается после каждого изменения состояния (может быть nil).
func NewLoader[T any](onChange func(State[T])) *Loader[T] {
	return &Loader[T]{onChange: onChange}
}

func (l *Loader[T]) State() State[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load запускает fn; возвращённый канал закрывается, когда этот вызов завершён
// (применён или отброшен).
func (l *Loader[T]) Load(ctx context.Context, fn func(context.Context) (T, error)) <-chan struct{} {
	l.mu.Lock()
	done, snapshot, version := l.startLocked(ctx, fn)
	l.mu.Unlock()
	l.notify(snapshot, version)
	return done
}

func (l *Loader[T]) startLocked(ctx context.Context, fn func(context.Context) (T, error)) (<-chan struct{}, State[T], uint64) {
	l.stopLocked()
	l.gen++
	gen := l.gen
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.lastCtx, l.lastFn = ctx, fn
	l.state.Loading = true
	l.version++
	version := l.version

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		data, err := fn(runCtx)

		l.mu.Lock()
		if gen != l.gen {
			l.mu.Unlock()
			return
		}
		l.state.Loading = false
		l.state.Err = err
		if err == nil {
			l.state.Data = data
		}
		l.version++
		snapshot, v := l.state, l.version
		l.mu.Unlock()
		l.notify(snapshot, v)
	}()
	return done, l.state, version
}

// Refetch повторяет последний Load; до первого Load ничего не делает.
func (l *Loader[T]) Refetch() <-chan struct{} {
	l.mu.Lock()
	ctx, fn := l.lastCtx, l.lastFn
	l.mu.Unlock()
	if fn == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return l.Load(ctx, fn)
}

// Debounced откладывает Load на delay; каждый следующий вызов в пределах delay
// переносит запуск и отменяет уже идущий запрос.
func (l *Loader[T]) Debounced(ctx context.Context, delay time.Duration, fn func(context.Context) (T, error)) {
	l.mu.Lock()
	l.stopLocked()
	l.gen++
	gen := l.gen
	l.timer = time.AfterFunc(delay, func() {
		l.mu.Lock()
		if gen != l.gen {
			l.mu.Unlock()
			return
		}
		_, snapshot, version := l.startLocked(ctx, fn)
		l.mu.Unlock()
		l.notify(snapshot, version)
	})
	l.mu.Unlock()
}

// Close отменяет запрос в полёте и отложенный запуск.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	l.stopLocked()
	l.gen++
	l.mu.Unlock()
}

func (l *Loader[T]) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// notify отбрасывает снимок, если уже доставлен более новый: быстрый ответ
// не должен смениться запоздавшим "загрузка".
func (l *Loader[T]) notify(s State[T], version uint64) {
	if l.onChange == nil {
		return
	}
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()
	if version <= l.delivered {
		return
	}
	l.delivered = version
	l.onChange(s)
}
