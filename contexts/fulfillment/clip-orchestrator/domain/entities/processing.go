package entities

import (
	"strings"
	"time"
)

type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "PENDING"
	ProcessingStatusProcessing ProcessingStatus = "PROCESSING"
	ProcessingStatusCompleted  ProcessingStatus = "COMPLETED"
	ProcessingStatusFailed     ProcessingStatus = "FAILED"
)

type VideoType string

const (
	VideoTypeRegular VideoType = "REGULAR"
	VideoTypeShorts  VideoType = "SHORTS"
	VideoTypeLive    VideoType = "LIVE"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
	AccountStatusBlocked   AccountStatus = "BLOCKED"
)

// Processing tracks one order's clip fabrication attempt history.
type Processing struct {
	ProcessingID string
	OrderID      string
	OriginalURL  string
	VideoType    VideoType
	Status       ProcessingStatus
	Attempts     int
	ClipCreated  bool
	ClipURL      string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account is one automation identity in the rotation pool.
type Account struct {
	AccountID    string
	Identity     string
	Status       AccountStatus
	DailyClips   int
	DailyLimit   int
	LastClipDate time.Time
	TotalClips   int64
}

// Available reports whether the account can take another clip today.
// A last-clip date before today means the daily counter is stale and counts
// as zero (lazy rollover).
func (a Account) Available(today time.Time) bool {
	if a.Status != AccountStatusActive {
		return false
	}
	if a.LastClipDate.Before(truncateDay(today)) {
		return true
	}
	return a.DailyClips < a.DailyLimit
}

// ClipEligible reports whether the video type supports clip creation.
// Already-short-form and live content is categorically out.
func ClipEligible(videoType VideoType) bool {
	return videoType == VideoTypeRegular
}

// DetermineVideoType classifies a video URL.
func DetermineVideoType(url string) VideoType {
	lowered := strings.ToLower(url)
	switch {
	case strings.Contains(lowered, "/shorts/"):
		return VideoTypeShorts
	case strings.Contains(lowered, "/live/"):
		return VideoTypeLive
	default:
		return VideoTypeRegular
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
