package common

import "sync"

type KeyedValue[T any, K any] struct {
	Key   K
	Value T
}
type YieldFn[T any, K any] func(T, K) (stopIterating bool)

type MapperFn[T any, K any] func(fn YieldFn[T, K])

type IteratorFn[T any, K any] func() (value T, key K, done bool)

type CancelFn func()

// Generator turns a push style mapper into a pull style iterator. The mapper
// runs on its own goroutine once Next is first called; Cancel releases it.
type Generator[T any, K any] struct {
	mapper  MapperFn[T, K]
	iter    IteratorFn[T, K]
	cancel  CancelFn
	started bool
}

func NewGenerator[T any, K any](mapper MapperFn[T, K]) *Generator[T, K] {
	return &Generator[T, K]{
		mapper: mapper,
	}
}

func (p *Generator[T, K]) Start() {
	if p.started {
		return
	}
	p.started = true
	generatedValues := make(chan KeyedValue[T, K])
	stopCh := make(chan struct{})
	var stopOnce sync.Once
	go func() {
		defer close(generatedValues)
		stopped := false
		p.mapper(func(obj T, key K) bool {
			if stopped {
				return true
			}
			select {
			case <-stopCh:
				stopped = true
			case generatedValues <- KeyedValue[T, K]{Key: key, Value: obj}:
			}
			return stopped
		})
	}()
	p.iter = func() (T, K, bool) {
		value, ok := <-generatedValues
		return value.Value, value.Key, !ok
	}
	p.cancel = func() {
		stopOnce.Do(func() { close(stopCh) })
	}
}

func (p *Generator[T, K]) Next() (T, K, bool) {
	if !p.started {
		p.Start()
	}
	return p.iter()
}

func (p *Generator[T, K]) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Generator[T, K]) Each(f func(value T, idx K) bool) {
	for {
		value, idx, done := p.Next()
		if done {
			break
		}
		if f(value, idx) {
			p.Cancel()
			break
		}
	}
}

// Collect drains the generator into a slice.
func (p *Generator[T, K]) Collect() []T {
	var values []T
	p.Each(func(value T, _ K) bool {
		values = append(values, value)
		return false
	})
	return values
}
