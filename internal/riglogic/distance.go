package riglogic

import (
	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
)

// poseDistance measures how far a solver query is from a target pose
// coordinate. Euclidean distance is in channel units; the rotational
// methods read four channels as qx qy qz qw and return degrees, matching
// the degree-valued solver radii.
func poseDistance(method dna.RBFDistanceMethod, axis dna.TwistAxis, query, pose []float32) float32 {
	switch method {
	case dna.DistanceQuaternion:
		return quatAngle(quatFrom(query), quatFrom(pose))
	case dna.DistanceSwingAngle:
		swing, _ := swingTwist(quatFrom(query), quatFrom(pose), axis)
		return swing
	case dna.DistanceTwistAngle:
		_, twist := swingTwist(quatFrom(query), quatFrom(pose), axis)
		return twist
	default:
		var sum float32
		for i := range query {
			d := query[i] - pose[i]
			sum += d * d
		}
		return math32.Sqrt(sum)
	}
}

func quatFrom(v []float32) math32.Quat {
	q := math32.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}
	if q.IsNil() {
		q.SetIdentity()
	}
	q.Normalize()
	return q
}

// quatAngle is the absolute rotation between two unit quaternions, in
// degrees.
func quatAngle(a, b math32.Quat) float32 {
	dot := math32.Abs(a.Dot(b))
	if dot > 1 {
		dot = 1
	}
	return math32.RadToDeg(2 * math32.Acos(dot))
}

// swingTwist splits the rotation carrying pose onto query into its swing
// and twist parts about the given axis and returns both angles in
// degrees.
func swingTwist(query, pose math32.Quat, axis dna.TwistAxis) (swing, twist float32) {
	rel := pose.Inverse()
	rel = rel.Mul(query)
	rel.Normalize()

	var proj float32
	switch axis {
	case dna.TwistY:
		proj = rel.Y
	case dna.TwistZ:
		proj = rel.Z
	default:
		proj = rel.X
	}

	twistQuat := math32.Quat{W: rel.W}
	switch axis {
	case dna.TwistY:
		twistQuat.Y = proj
	case dna.TwistZ:
		twistQuat.Z = proj
	default:
		twistQuat.X = proj
	}
	if twistQuat.IsNil() {
		twistQuat.SetIdentity()
	}
	twistQuat.Normalize()

	inv := twistQuat.Inverse()
	swingQuat := rel.Mul(inv)
	swingQuat.Normalize()

	return unsignedAngle(swingQuat), unsignedAngle(twistQuat)
}

func unsignedAngle(q math32.Quat) float32 {
	w := math32.Abs(q.W)
	if w > 1 {
		w = 1
	}
	return math32.RadToDeg(2 * math32.Acos(w))
}
