package models

import (
	"fmt"
	"math"
)

// Readiness indicates how much of a media resource is available at the
// current playback position
type Readiness int

const (
	NoData Readiness = iota
	HasMetadata
	HasCurrentFrame
	HasFutureData
	HasEnoughData
)

func (r Readiness) String() string {
	switch r {
	case NoData:
		return "no-data"
	case HasMetadata:
		return "has-metadata"
	case HasCurrentFrame:
		return "has-current-frame"
	case HasFutureData:
		return "has-future-data"
	case HasEnoughData:
		return "has-enough-data"
	default:
		return fmt.Sprintf("readiness(%d)", int(r))
	}
}

// FrameAvailable reports whether a frame can be sampled at this readiness
func (r Readiness) FrameAvailable() bool {
	return r >= HasCurrentFrame
}

// VideoMetadata contains comprehensive video file information
type VideoMetadata struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	AspectRatio string  `json:"aspect_ratio"`
	Duration    float64 `json:"duration_seconds"`
	Codec       string  `json:"codec"`
	Bitrate     int64   `json:"bitrate,omitempty"`
}

// HasDuration reports whether the duration is a usable finite value
func (m VideoMetadata) HasDuration() bool {
	return m.Duration > 0 && !math.IsNaN(m.Duration) && !math.IsInf(m.Duration, 0)
}

// ClipGeometry describes where, inside the composition frame, the live
// media is drawn and the rounded corner radius of that cutout
type ClipGeometry struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	CornerRadius float64 `json:"corner_radius"`
}

// Valid reports whether every field is finite and the box has a positive area
func (c ClipGeometry) Valid() bool {
	for _, v := range []float64{c.X, c.Y, c.Width, c.Height, c.CornerRadius} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Width > 0 && c.Height > 0 && c.CornerRadius >= 0
}

// Placement is the destination rectangle of a scaled media frame and the
// scale factor that produced it
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Scale  float64
}
