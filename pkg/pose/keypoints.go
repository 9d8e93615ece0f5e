package pose

// COCO 17-keypoint skeleton indices.
// The order is fixed by the upstream pose estimator, and all geometry code
// must index keypoints through these constants, never through raw integers.
const (
	KeypointNose          = 0
	KeypointLeftEye       = 1
	KeypointRightEye      = 2
	KeypointLeftEar       = 3
	KeypointRightEar      = 4
	KeypointLeftShoulder  = 5
	KeypointRightShoulder = 6
	KeypointLeftElbow     = 7
	KeypointRightElbow    = 8
	KeypointLeftWrist     = 9
	KeypointRightWrist    = 10
	KeypointLeftHip       = 11
	KeypointRightHip      = 12
	KeypointLeftKnee      = 13
	KeypointRightKnee     = 14
	KeypointLeftAnkle     = 15
	KeypointRightAnkle    = 16
)

const NumKeypoints = 17

// KeypointNames maps keypoint indices to human readable names, for logging and debug output
var KeypointNames = []string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}
