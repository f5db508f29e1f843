package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// below this length a quaternion is treated as degenerate
const quatDegenerateLen = 1e-8

// slerp falls back to linear interpolation above this cosine
const SlerpLinearThreshold = 0.999999

// InvalidQuat is returned when normalizing a degenerate quaternion.
// The negative w is significant: shortest-path slerp flips on it.
var InvalidQuat = mgl32.Quat{W: -1}

func NormalizeQuat(q mgl32.Quat) mgl32.Quat {
	l := float64(q.W*q.W + q.V.Dot(q.V))
	if l < quatDegenerateLen*quatDegenerateLen {
		return InvalidQuat
	}
	inv := float32(1.0 / math.Sqrt(l))
	return mgl32.Quat{W: q.W * inv, V: q.V.Mul(inv)}
}

// SlerpQuat spherically interpolates from a to b by t taking the shortest path.
// t <= 0 returns a unchanged and t >= 1 returns b unchanged.
func SlerpQuat(a, b mgl32.Quat, t float32) mgl32.Quat {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}

	cosom := a.Dot(b)
	if cosom < 0 {
		cosom = -cosom
		b = mgl32.Quat{W: -b.W, V: b.V.Mul(-1)}
	}

	var s0, s1 float32
	if cosom >= SlerpLinearThreshold {
		s0 = 1 - t
		s1 = t
	} else {
		omega := math.Acos(float64(cosom))
		sinom := math.Sin(omega)
		s0 = float32(math.Sin(float64(1-t)*omega) / sinom)
		s1 = float32(math.Sin(float64(t)*omega) / sinom)
	}

	r := mgl32.Quat{
		W: a.W*s0 + b.W*s1,
		V: a.V.Mul(s0).Add(b.V.Mul(s1)),
	}
	if cosom >= SlerpLinearThreshold {
		return NormalizeQuat(r)
	}
	return r
}

func LerpVec3(from, to mgl32.Vec3, t float32) mgl32.Vec3 {
	return from.Add(to.Sub(from).Mul(t))
}

// JointMatrix builds the affine T*R*S matrix of a joint pose.
func JointMatrix(translate mgl32.Vec3, rotate mgl32.Quat, scale mgl32.Vec3) mgl32.Mat4 {
	m := rotate.Mat4()
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			m[col*4+row] *= scale[col]
		}
	}
	m[12] = translate[0]
	m[13] = translate[1]
	m[14] = translate[2]
	return m
}

// Rows3x4 flattens the top three rows of an affine matrix, row-major.
func Rows3x4(m mgl32.Mat4) [12]float32 {
	var r [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			r[row*4+col] = m.At(row, col)
		}
	}
	return r
}

// result in radians
func QuatToEuler(q mgl32.Quat) (e mgl32.Vec3) {
	sinr_cosp := float64(2 * (q.W*q.X() + q.Y()*q.Z()))
	cosr_cosp := float64(1 - 2*(q.X()*q.X()+q.Y()*q.Y()))

	e[0] = float32(math.Atan2(sinr_cosp, cosr_cosp))

	sinp := float64(2 * (q.W*q.Y() - q.Z()*q.X()))
	if math.Abs(sinp) >= 1 {
		e[1] = math.Pi / 2
		if sinp < 0 {
			e[1] *= -1
		}
	} else {
		e[1] = float32(math.Asin(sinp))
	}

	siny_cosp := float64(2 * (q.W*q.Z() + q.X()*q.Y()))
	cosy_cosp := float64(1 - 2*(q.Y()*q.Y()+q.Z()*q.Z()))
	e[2] = float32(math.Atan2(siny_cosp, cosy_cosp))

	return e
}

func RadiansToDegreeV3(v mgl32.Vec3) mgl32.Vec3 {
	return v.Mul(180.0 / math.Pi)
}
