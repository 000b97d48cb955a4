package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/df07/go-multiview-renderer/pkg/core"
)

// Extrinsic converts a camera-to-world transform into the 3x4 world-to-camera
// matrix [R^T | -R^T t]. Scale is discarded and the host's own camera axes are
// kept (-Z forward, +Y up).
func Extrinsic(world core.Mat4) core.Mat3x4 {
	location, rotation, _ := world.Decompose()
	rt := rotation.Transpose()
	t := rt.MulVec(location).Negate()

	var m core.Mat3x4
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r][c] = rt[r][c]
		}
	}
	m[0][3], m[1][3], m[2][3] = t.X, t.Y, t.Z
	return m
}

// WriteExtrinsicNPY saves m as a float64 NumPy array of shape (3, 4)
func WriteExtrinsicNPY(path string, m core.Mat3x4) error {
	dense := mat.NewDense(3, 4, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			dense.Set(r, c, m[r][c])
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := npyio.Write(f, dense); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadExtrinsicNPY loads a matrix written by WriteExtrinsicNPY
func ReadExtrinsicNPY(path string) (core.Mat3x4, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Mat3x4{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var dense mat.Dense
	if err := npyio.Read(f, &dense); err != nil {
		return core.Mat3x4{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if r, c := dense.Dims(); r != 3 || c != 4 {
		return core.Mat3x4{}, fmt.Errorf("%s: shape (%d, %d), want (3, 4)", path, r, c)
	}

	var m core.Mat3x4
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m[r][c] = dense.At(r, c)
		}
	}
	return m, nil
}
