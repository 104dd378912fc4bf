package bitstream

import "github.com/annel0/sniff-parser/internal/guid"

// MaskedGUID - частично собранный обфусцированный GUID.
//
// Фаза объявления читает по одному биту на байт (ненулевой ли он),
// фаза данных читает только отмеченные байты и применяет к ним XOR.
// Между фазами значение живёт у вызывающего кода.
type MaskedGUID [8]byte

// DeclareGUID читает биты присутствия в заданном порядке позиций
func (r *Reader) DeclareGUID(order ...int) MaskedGUID {
	var g MaskedGUID
	for _, idx := range order {
		r.DeclareGUIDByte(&g, idx)
	}
	return g
}

// DeclareGUIDByte читает бит присутствия для одной позиции
func (r *Reader) DeclareGUIDByte(g *MaskedGUID, idx int) {
	if r.ReadBit() {
		g[idx] = 1
	} else {
		g[idx] = 0
	}
}

// CompleteGUID дочитывает отмеченные байты в заданном порядке
func (r *Reader) CompleteGUID(g MaskedGUID, order ...int) MaskedGUID {
	for _, idx := range order {
		r.XORGUIDByte(&g, idx)
	}
	return g
}

// XORGUIDByte дочитывает одну позицию, если она отмечена
func (r *Reader) XORGUIDByte(g *MaskedGUID, idx int) {
	if g[idx] != 0 {
		g[idx] ^= r.ReadUint8()
	}
}

// Value собирает байты в little-endian число
func (g MaskedGUID) Value() uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(g[i])
	}
	return v
}

// GUID возвращает классический идентификатор
func (g MaskedGUID) GUID() guid.GUID {
	return guid.New64(g.Value())
}
