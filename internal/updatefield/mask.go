package updatefield

import "github.com/annel0/sniff-parser/internal/bitstream"

// Mask - битовая маска присутствующих слотов.
// Бит i лежит в слове i/32, внутри слова младший бит идёт первым.
type Mask []uint32

// readMask читает счётчик слов (1 байт) и сами слова
func readMask(r *bitstream.Reader) Mask {
	n := int(r.ReadUint8())
	m := make(Mask, n)
	for i := range m {
		m[i] = r.ReadUint32()
	}
	return m
}

// Len - число бит в маске, всегда 32 * число слов
func (m Mask) Len() int {
	return len(m) * 32
}

// IsSet проверяет бит; индексы за пределами маски считаются сброшенными
func (m Mask) IsSet(i int) bool {
	if i < 0 || i >= m.Len() {
		return false
	}
	return m[i/32]&(1<<(uint(i)%32)) != 0
}

// Set выставляет бит, расширяя маску при необходимости
func (m *Mask) Set(i int) {
	for i >= m.Len() {
		*m = append(*m, 0)
	}
	(*m)[i/32] |= 1 << (uint(i) % 32)
}

// AnySet - выставлен ли хотя бы один бит в диапазоне [from, from+n)
func (m Mask) AnySet(from, n int) bool {
	for i := from; i < from+n; i++ {
		if m.IsSet(i) {
			return true
		}
	}
	return false
}

// Count - число выставленных бит
func (m Mask) Count() int {
	n := 0
	for i := 0; i < m.Len(); i++ {
		if m.IsSet(i) {
			n++
		}
	}
	return n
}

// write кодирует маску: счётчик слов и слова
func (m Mask) write(w *bitstream.Writer) {
	w.WriteUint8(uint8(len(m)))
	for _, word := range m {
		w.WriteUint32(word)
	}
}
