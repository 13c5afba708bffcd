package config

import "time"

// Output frame and encoder settings. Frames are portrait 9:16.
const (
	VideoWidth  = 1080
	VideoHeight = 1920

	// VideoFPS is the fixed output frame rate
	VideoFPS = 30

	VideoCodec = "libx264"

	AudioCodec = "aac"

	AudioBitrate = "192k"

	VideoPreset = "fast"

	// PixelFormat keeps the output playable on phones
	PixelFormat = "yuv420p"
)

// Script Constants
const (
	// MinLineLength drops fragments shorter than this many characters
	MinLineLength = 12

	// WordsPerSecond is the speaking rate used to size scripts
	WordsPerSecond = 2.5

	// MaxSourceChars caps the source article excerpt sent to the text provider
	MaxSourceChars = 4000
)

// Asset Constants
const (
	// DefaultCandidates is how many images are requested per scene
	DefaultCandidates = 5

	// MaxQueryWords caps the number of significant words in a search query
	MaxQueryWords = 4

	// MaxConcurrentScenes bounds parallel image resolution inside one job
	MaxConcurrentScenes = 4
)

// Job Constants
const (
	// DefaultProviderTimeout bounds every single provider call
	DefaultProviderTimeout = 60 * time.Second

	// DefaultPublishTimeout bounds the upload call
	DefaultPublishTimeout = 10 * time.Minute

	// MaxConcurrentJobs limits the number of jobs processed simultaneously
	MaxConcurrentJobs = 2

	// MaxQueuedJobs limits pending jobs waiting for a slot
	MaxQueuedJobs = 32

	// MaxJobLogs is the size of the per-job log ring
	MaxJobLogs = 50

	// MaxRetainedJobs is how many finished jobs the manager keeps in memory
	MaxRetainedJobs = 100

	// JobStatusTTL is how long finished job snapshots are kept in Redis
	JobStatusTTL = 24 * time.Hour
)

// Publish defaults
const (
	MaxTitleLength = 100

	// YouTubeCategoryID for People & Blogs
	YouTubeCategoryID = "22"

	// YouTubePrivacyStatus applies when neither the job nor config sets one
	YouTubePrivacyStatus = "public"
)

// Directory Constants
const (
	// WorkDir holds job-scoped intermediate files
	WorkDir = "work"

	OutputDir = "output"
)
