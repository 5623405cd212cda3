package mathutil

// Camera matrices for preview thumbnails.
var (
	// ZUpToYUp converts slicer space (Z up, build plate in XY) to screen space (Y up).
	ZUpToYUp = RotX(Deg2Rad(-90))

	// PreviewView is a three-quarter view: Rx(25°) @ Ry(-35°) @ ZUpToYUp.
	PreviewView = Mat3Mul(Mat3Mul(RotX(Deg2Rad(25)), RotY(Deg2Rad(-35))), ZUpToYUp)
)
