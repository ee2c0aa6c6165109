package event

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

type CallbackItem[T any] struct {
	Id        string
	Priority  int
	IsOnetime bool
	Callback  func(T)
}

// EventEmitter dispatches typed payloads to handlers registered per event
// name. Handlers run on their own goroutine, lower priority first.
type EventEmitter[T any] struct {
	callbacks map[string][]CallbackItem[T]
	mxState   sync.RWMutex
	nextId    atomic.Uint64
}

func CreateEventEmitter[T any]() *EventEmitter[T] {
	return &EventEmitter[T]{
		callbacks: make(map[string][]CallbackItem[T]),
	}
}

func (s *EventEmitter[T]) addHandler(event string, callbackItem CallbackItem[T]) {
	s.mxState.Lock()
	defer s.mxState.Unlock()
	callbacks := s.callbacks[event]
	idx := slices.IndexFunc(callbacks, func(item CallbackItem[T]) bool {
		return item.Priority > callbackItem.Priority
	})
	if idx < 0 {
		idx = len(callbacks)
	}
	s.callbacks[event] = slices.Insert(callbacks, idx, callbackItem)
}

func (s *EventEmitter[T]) register(event string, callback func(T), isOnetime bool, priorityArr []int) string {
	priority := 100
	if len(priorityArr) > 0 {
		priority = priorityArr[0]
	}
	id := strconv.FormatUint(s.nextId.Add(1), 10)
	s.addHandler(event, CallbackItem[T]{Callback: callback, Priority: priority, Id: id, IsOnetime: isOnetime})
	return id
}

func (s *EventEmitter[T]) On(event string, callback func(T), priorityArr ...int) string {
	return s.register(event, callback, false, priorityArr)
}

func (s *EventEmitter[T]) Once(event string, callback func(T), priorityArr ...int) string {
	return s.register(event, callback, true, priorityArr)
}

// Off removes the given handlers of event, or all of them when no id is given.
func (s *EventEmitter[T]) Off(event string, callbackIds ...string) {
	s.mxState.Lock()
	defer s.mxState.Unlock()
	if len(callbackIds) == 0 {
		delete(s.callbacks, event)
		return
	}
	s.callbacks[event] = slices.DeleteFunc(s.callbacks[event], func(item CallbackItem[T]) bool {
		return slices.Contains(callbackIds, item.Id)
	})
}

func (s *EventEmitter[T]) Emit(event string, payload T) {
	s.mxState.Lock()
	callbacks := slices.Clone(s.callbacks[event])
	s.callbacks[event] = slices.DeleteFunc(s.callbacks[event], func(item CallbackItem[T]) bool {
		return item.IsOnetime
	})
	s.mxState.Unlock()
	for _, callback := range callbacks {
		go callback.Callback(payload)
	}
}
