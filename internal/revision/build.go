// Package revision содержит номера сборок клиента, на которых меняется
// формат протокола, и таблицу выбора процедуры по минимальной сборке.
package revision

// Build - номер сборки клиента (монотонно растёт)
type Build uint32

// Сборки, на которых меняется разметка пакетов
const (
	V3_0_2_9056  Build = 9056
	V3_0_8_9464  Build = 9464
	V3_1_0_9767  Build = 9767
	V3_1_2_9901  Build = 9901
	V3_3_5_12340 Build = 12340
	V4_0_1_13164 Build = 13164
	V4_1_0_13914 Build = 13914
	V4_2_0_14333 Build = 14333
	V4_2_2_14545 Build = 14545
	V4_3_0_15005 Build = 15005
	V4_3_2_15211 Build = 15211
	V4_3_3_15354 Build = 15354
	V4_3_4_15595 Build = 15595
	V5_0_4_16016 Build = 16016
	V5_1_0_16309 Build = 16309
	V6_0_2_19033 Build = 19033
	V7_0_3_22248 Build = 22248
	V8_0_1_27101 Build = 27101
)

// AddedIn возвращает true, если формат сборки from уже действует
func (b Build) AddedIn(from Build) bool {
	return b >= from
}

// RemovedIn возвращает true, если сборка предшествует from
func (b Build) RemovedIn(from Build) bool {
	return b < from
}

// Cataclysm - с 4.0.1 сменилась нумерация типов блоков и разметка GUID
func (b Build) Cataclysm() bool {
	return b >= V4_0_1_13164
}

// WideGUID - с 6.0.2 идентификаторы 128-битные
func (b Build) WideGUID() bool {
	return b >= V6_0_2_19033
}

// GUIDFieldSlots - сколько слотов полей занимает GUID
func (b Build) GUIDFieldSlots() int {
	if b.WideGUID() {
		return 4
	}
	return 2
}

// HasDynamicFields - динамические поля появились в 5.0.4
func (b Build) HasDynamicFields() bool {
	return b >= V5_0_4_16016
}

// LargeDynamicCounts - с 7.0.3 счётчик динамического поля 15-битный
func (b Build) LargeDynamicCounts() bool {
	return b >= V7_0_3_22248
}
