package dataset

import (
	"fmt"
)

// Normalize scales the scene so its largest bounding-box extent is 1, then
// centers the box on the origin.
func Normalize(host SceneHost, ignoreTransforms bool) error {
	box, err := host.BoundingBox(ignoreTransforms)
	if err != nil {
		return err
	}
	extent := box.Size().MaxComponent()
	if !(extent > 0) {
		return fmt.Errorf("%w: %v to %v", ErrDegenerateBounds, box.Min, box.Max)
	}
	host.ScaleRoots(1 / extent)

	box, err = host.BoundingBox(ignoreTransforms)
	if err != nil {
		return err
	}
	host.TranslateRoots(box.Center().Negate())
	return nil
}
