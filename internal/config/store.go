package config

import "sync/atomic"

// Store — хранилище настроек FFB: неизменяемый снимок за atomic.Pointer.
// Процессор читает Snapshot раз за тик; запись (auto max force, reload) подменяет копию.
type Store struct {
	cur atomic.Pointer[FFB]
}

// NewStore создаёт хранилище с копией f (значения приводятся к диапазонам)
func NewStore(f FFB) *Store {
	s := &Store{}
	s.Replace(f)
	return s
}

// Snapshot возвращает текущий снимок. Изменять его нельзя.
func (s *Store) Snapshot() *FFB {
	return s.cur.Load()
}

// Replace подменяет весь снимок
func (s *Store) Replace(f FFB) {
	f.Clamp()
	s.cur.Store(&f)
}

// SetMaxForce записывает новое значение max force (с ограничением диапазона)
func (s *Store) SetMaxForce(v float64) {
	for {
		old := s.cur.Load()
		next := *old
		next.MaxForce = ClampMaxForce(v)
		if s.cur.CompareAndSwap(old, &next) {
			return
		}
	}
}
