package riglogic

import (
	"testing"

	"cogentcore.org/core/base/tolassert"
	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"

	"rigdna/internal/dna"
)

// quatValues packs an axis-angle rotation into the qx qy qz qw channel
// layout the rotational distance methods read.
func quatValues(x, y, z, deg float32) []float32 {
	q := math32.NewQuatAxisAngle(math32.Vec3(x, y, z), math32.DegToRad(deg))
	return []float32{q.X, q.Y, q.Z, q.W}
}

func TestPoseDistanceEuclidean(t *testing.T) {
	assert.Equal(t, float32(0),
		poseDistance(dna.DistanceEuclidean, dna.TwistX, []float32{0.3, 0.7}, []float32{0.3, 0.7}))
	tolassert.EqualTol(t, 5,
		poseDistance(dna.DistanceEuclidean, dna.TwistX, []float32{0, 0}, []float32{3, 4}), 1e-6)
	tolassert.EqualTol(t, 1,
		poseDistance(dna.DistanceEuclidean, dna.TwistX, []float32{1}, []float32{0}), 1e-6)
}

func TestPoseDistanceQuaternion(t *testing.T) {
	identity := []float32{0, 0, 0, 1}

	tolassert.EqualTol(t, 0, poseDistance(dna.DistanceQuaternion, dna.TwistX, identity, identity), 1e-3)
	tolassert.EqualTol(t, 90,
		poseDistance(dna.DistanceQuaternion, dna.TwistX, quatValues(1, 0, 0, 90), identity), 1e-3)
	tolassert.EqualTol(t, 45,
		poseDistance(dna.DistanceQuaternion, dna.TwistX, quatValues(1, 0, 0, 45), identity), 1e-3)

	// q and -q are the same orientation.
	neg := quatValues(1, 0, 0, 90)
	for i := range neg {
		neg[i] = -neg[i]
	}
	tolassert.EqualTol(t, 0,
		poseDistance(dna.DistanceQuaternion, dna.TwistX, neg, quatValues(1, 0, 0, 90)), 1e-2)

	// All-zero inputs read as the identity orientation.
	tolassert.EqualTol(t, 0,
		poseDistance(dna.DistanceQuaternion, dna.TwistX, []float32{0, 0, 0, 0}, identity), 1e-3)
}

func TestPoseDistanceSwingTwist(t *testing.T) {
	identity := []float32{0, 0, 0, 1}
	aboutX := quatValues(1, 0, 0, 60)
	aboutY := quatValues(0, 1, 0, 60)

	// Rotation about the twist axis is pure twist.
	tolassert.EqualTol(t, 60, poseDistance(dna.DistanceTwistAngle, dna.TwistX, aboutX, identity), 1e-3)
	tolassert.EqualTol(t, 0, poseDistance(dna.DistanceSwingAngle, dna.TwistX, aboutX, identity), 1e-3)

	// Rotation perpendicular to it is pure swing.
	tolassert.EqualTol(t, 60, poseDistance(dna.DistanceSwingAngle, dna.TwistX, aboutY, identity), 1e-3)
	tolassert.EqualTol(t, 0, poseDistance(dna.DistanceTwistAngle, dna.TwistX, aboutY, identity), 1e-3)

	// Measured about its own axis the same rotation flips the split.
	tolassert.EqualTol(t, 60, poseDistance(dna.DistanceTwistAngle, dna.TwistY, aboutY, identity), 1e-3)
	tolassert.EqualTol(t, 0, poseDistance(dna.DistanceSwingAngle, dna.TwistY, aboutY, identity), 1e-3)

	tolassert.EqualTol(t, 60, poseDistance(dna.DistanceTwistAngle, dna.TwistZ, quatValues(0, 0, 1, 60), identity), 1e-3)
}
