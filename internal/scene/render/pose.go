package render

import (
	"encoding/json"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/newtondotcom/roomplan/internal/scene/models"
)

// ============================================================
// Pose
// ============================================================

// Pose is a transform split into translation, rotation and scale.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Position   [3]float64 `json:"position"`
		Quaternion [4]float64 `json:"quaternion"`
		Scale      [3]float64 `json:"scale"`
	}{p.Position, p.Quaternion(), p.Scale})
}

// Quaternion returns the rotation as x, y, z, w.
func (p Pose) Quaternion() [4]float64 {
	return [4]float64{p.Rotation.V[0], p.Rotation.V[1], p.Rotation.V[2], p.Rotation.W}
}

// Matrix recomposes the pose as T * R * S.
func (p Pose) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(p.Position[0], p.Position[1], p.Position[2]).
		Mul4(p.Rotation.Mat4()).
		Mul4(mgl64.Scale3D(p.Scale[0], p.Scale[1], p.Scale[2]))
}

// Rotate composes an extra rotation about axis on top of the current one.
func (p Pose) Rotate(angle float64, axis mgl64.Vec3) Pose {
	p.Rotation = p.Rotation.Mul(mgl64.QuatRotate(angle, axis)).Normalize()
	return p
}

// Decompose splits a column-major transform into a pose. A negative
// determinant is carried by the x scale.
func Decompose(t models.Transform) Pose {
	m := mgl64.Mat4(t)

	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}

	rot := mgl64.Ident4()
	if sx != 0 && sy != 0 && sz != 0 {
		rot.SetCol(0, m.Col(0).Mul(1/sx))
		rot.SetCol(1, m.Col(1).Mul(1/sy))
		rot.SetCol(2, m.Col(2).Mul(1/sz))
		rot.SetCol(3, mgl64.Vec4{0, 0, 0, 1})
	}

	return Pose{
		Position: m.Col(3).Vec3(),
		Rotation: mgl64.Mat4ToQuat(rot).Normalize(),
		Scale:    mgl64.Vec3{sx, sy, sz},
	}
}

// Relative expresses child in the local frame of parent.
func Relative(parent, child models.Transform) Pose {
	p := mgl64.Mat4(parent)
	if math.Abs(p.Det()) < 1e-12 {
		return Decompose(child)
	}
	return Decompose(models.Transform(p.Inv().Mul4(mgl64.Mat4(child))))
}
