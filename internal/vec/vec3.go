package vec

import (
	"fmt"
	"math"
)

// Vector3 представляет позицию в мире (X, Y, Z) в единицах клиента
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Vector4 - позиция с ориентацией (используется для смещения на транспорте)
type Vector4 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	O float32 `json:"o"`
}

// Equal сравнивает векторы побитово, без эпсилона
func (v Vector3) Equal(other Vector3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// IsZero возвращает true для нулевого вектора
func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// DistanceTo возвращает евклидово расстояние до другого вектора
func (v Vector3) DistanceTo(other Vector3) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ToVector4 добавляет ориентацию
func (v Vector3) ToVector4(o float32) Vector4 {
	return Vector4{X: v.X, Y: v.Y, Z: v.Z, O: o}
}

func (v Vector3) String() string {
	return fmt.Sprintf("X: %g Y: %g Z: %g", v.X, v.Y, v.Z)
}

// XYZ отбрасывает ориентацию
func (v Vector4) XYZ() Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

func (v Vector4) String() string {
	return fmt.Sprintf("X: %g Y: %g Z: %g O: %g", v.X, v.Y, v.Z, v.O)
}
