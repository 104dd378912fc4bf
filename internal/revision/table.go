package revision

import "sort"

// Table выбирает значение по активной сборке: побеждает запись с
// наибольшим порогом, не превышающим сборку. Если ни один порог не
// подошёл, возвращается значение по умолчанию (legacy).
type Table[T any] struct {
	entries  []entry[T]
	fallback T
}

type entry[T any] struct {
	min   Build
	value T
}

// NewTable создаёт таблицу с legacy-значением
func NewTable[T any](fallback T) *Table[T] {
	return &Table[T]{fallback: fallback}
}

// Register добавляет порог. Повторная регистрация того же порога заменяет значение.
func (t *Table[T]) Register(min Build, value T) *Table[T] {
	for i := range t.entries {
		if t.entries[i].min == min {
			t.entries[i].value = value
			return t
		}
	}
	t.entries = append(t.entries, entry[T]{min: min, value: value})
	sort.Slice(t.entries, func(i, j int) bool { return t.entries[i].min > t.entries[j].min })
	return t
}

// Select никогда не завершается ошибкой
func (t *Table[T]) Select(b Build) T {
	for _, e := range t.entries {
		if b >= e.min {
			return e.value
		}
	}
	return t.fallback
}

// Thresholds возвращает пороги по возрастанию
func (t *Table[T]) Thresholds() []Build {
	out := make([]Build, len(t.entries))
	for i, e := range t.entries {
		out[len(t.entries)-1-i] = e.min
	}
	return out
}

// Fallback возвращает legacy-значение
func (t *Table[T]) Fallback() T {
	return t.fallback
}
