package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type Func func(ctx context.Context) error

type namedFunc struct {
	name string
	fn   Func
}

// Closer закрывает зарегистрированные ресурсы воркера в обратном порядке (LIFO).
type Closer struct {
	mu    sync.Mutex
	once  sync.Once
	funcs []namedFunc
}

func NewCloser() *Closer {
	return &Closer{}
}

// Add регистрирует функцию закрытия под именем, которое попадёт в текст ошибки.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, namedFunc{name: name, fn: f})
}

// AddSimple регистрирует функцию без контекста и ошибки (например, pool.Close).
func (c *Closer) AddSimple(name string, f func()) {
	c.Add(name, func(context.Context) error {
		f()
		return nil
	})
}

// Close вызывает функции в порядке LIFO. Каждая функция ограничена контекстом:
// если он истёк, оставшиеся ресурсы всё равно закрываются, а ошибки накапливаются.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		funcs := c.funcs
		c.mu.Unlock()

		var errs []error
		for i := len(funcs) - 1; i >= 0; i-- {
			if closeErr := c.closeOne(ctx, funcs[i]); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		err = errors.Join(errs...)
	})

	return err
}

func (c *Closer) closeOne(ctx context.Context, f namedFunc) error {
	done := make(chan error, 1)
	go func() {
		done <- f.fn(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("[!] %s: %w", f.name, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("[TIMEOUT] %s: %w", f.name, ctx.Err())
	}
}
