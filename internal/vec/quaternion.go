package vec

import (
	"fmt"
	"math"
)

// Quaternion - вращение объекта (GameObject rotation)
type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

const (
	packedXMultiplier  = 1.0 / 2097152.0 // 2^21
	packedYZMultiplier = 1.0 / 1048576.0 // 2^20
)

// UnpackQuaternion распаковывает 64-битное представление: 22 бита X, 21 бит Y, 21 бит Z.
// W восстанавливается из нормы.
func UnpackQuaternion(packed int64) Quaternion {
	x := float64(packed>>42) * packedXMultiplier
	y := float64((packed<<22)>>43) * packedYZMultiplier
	z := float64((packed<<43)>>43) * packedYZMultiplier

	w := x*x + y*y + z*z
	if math.Abs(w-1.0) >= packedYZMultiplier {
		w = math.Sqrt(1.0 - w)
	} else {
		w = 0
	}

	return Quaternion{X: float32(x), Y: float32(y), Z: float32(z), W: float32(w)}
}

func (q Quaternion) String() string {
	return fmt.Sprintf("X: %g Y: %g Z: %g W: %g", q.X, q.Y, q.Z, q.W)
}
