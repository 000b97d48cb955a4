package core

import "math"

// Mat3 is a row-major 3x3 matrix
type Mat3 [3][3]float64

// Mat4 is a row-major 4x4 affine transform acting on column vectors (p' = M p)
type Mat4 [4][4]float64

// Mat3x4 is a row-major 3x4 rigid transform [R | t]
type Mat3x4 [3][4]float64

// Identity3 returns the 3x3 identity matrix
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Identity4 returns the 4x4 identity matrix
func Identity4() Mat4 {
	return Mat4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// NewMat3FromColumns builds a matrix whose columns are x, y and z
func NewMat3FromColumns(x, y, z Vec3) Mat3 {
	return Mat3{
		{x.X, y.X, z.X},
		{x.Y, y.Y, z.Y},
		{x.Z, y.Z, z.Z},
	}
}

// Column returns column i as a vector
func (m Mat3) Column(i int) Vec3 {
	return Vec3{m[0][i], m[1][i], m[2][i]}
}

// Transpose returns the transposed matrix
func (m Mat3) Transpose() Mat3 {
	var t Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// MulVec returns m * v
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Mul returns m * other
func (m Mat3) Mul(other Mat3) Mat3 {
	var r Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return r
}

// RotationX returns a rotation of angle radians about +X
func RotationX(angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

// RotationY returns a rotation of angle radians about +Y
func RotationY(angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

// RotationZ returns a rotation of angle radians about +Z
func RotationZ(angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// EulerXYZ returns the rotation for XYZ-ordered Euler angles in radians:
// X is applied first, then Y, then Z.
func EulerXYZ(angles Vec3) Mat3 {
	return RotationZ(angles.Z).Mul(RotationY(angles.Y)).Mul(RotationX(angles.X))
}

// QuaternionToMat3 converts a unit quaternion (x, y, z, w) to a rotation matrix
func QuaternionToMat3(x, y, z, w float64) Mat3 {
	n := math.Sqrt(x*x + y*y + z*z + w*w)
	if n == 0 {
		return Identity3()
	}
	x, y, z, w = x/n, y/n, z/n, w/n
	return Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// ComposeTRS builds translation * rotation * scale
func ComposeTRS(translation Vec3, rotation Mat3, scale Vec3) Mat4 {
	m := Identity4()
	s := [3]float64{scale.X, scale.Y, scale.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = rotation[i][j] * s[j]
		}
	}
	m[0][3], m[1][3], m[2][3] = translation.X, translation.Y, translation.Z
	return m
}

// NewMat4FromColumnMajor builds a matrix from 16 column-major values
func NewMat4FromColumnMajor(v [16]float64) Mat4 {
	var m Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			m[row][col] = v[col*4+row]
		}
	}
	return m
}

// Mul returns m * other
func (m Mat4) Mul(other Mat4) Mat4 {
	var r Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				r[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return r
}

// TransformPoint applies the full affine transform to p
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z + m[0][3],
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z + m[1][3],
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z + m[2][3],
	}
}

// TransformDirection applies only the linear part of the transform to d
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return m.Linear().MulVec(d)
}

// Translation returns the translation column
func (m Mat4) Translation() Vec3 {
	return Vec3{m[0][3], m[1][3], m[2][3]}
}

// Linear returns the upper-left 3x3 block
func (m Mat4) Linear() Mat3 {
	return Mat3{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
}

// Decompose splits an affine transform with positive scale into location,
// rotation and per-axis scale.
func (m Mat4) Decompose() (location Vec3, rotation Mat3, scale Vec3) {
	linear := m.Linear()
	x, y, z := linear.Column(0), linear.Column(1), linear.Column(2)
	scale = Vec3{x.Length(), y.Length(), z.Length()}
	rotation = NewMat3FromColumns(x.Normalize(), y.Normalize(), z.Normalize())
	return m.Translation(), rotation, scale
}

// LookAt returns the rotation of an object at position whose local -Z points
// at target and whose local +Y leans towards up. When the view direction is
// parallel to up, local +X falls back to world +X.
func LookAt(position, target, up Vec3) Mat3 {
	forward := target.Subtract(position).Normalize()
	zAxis := forward.Negate()
	xAxis := up.Cross(zAxis)
	if xAxis.LengthSquared() < 1e-18 {
		xAxis = Vec3{1, 0, 0}
	}
	xAxis = xAxis.Normalize()
	yAxis := zAxis.Cross(xAxis)
	return NewMat3FromColumns(xAxis, yAxis, zAxis)
}

// ScaleAboutOrigin returns m followed by a uniform scale about the world
// origin, so the translation scales along with the basis
func (m Mat4) ScaleAboutOrigin(factor float64) Mat4 {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m[r][c] *= factor
		}
	}
	return m
}

// Translate returns m with offset added to its translation
func (m Mat4) Translate(offset Vec3) Mat4 {
	m[0][3] += offset.X
	m[1][3] += offset.Y
	m[2][3] += offset.Z
	return m
}
