package playback

// TimeRange is a buffered span of the media timeline, in seconds.
type TimeRange struct {
	Start, End float64
}

// TextTrackMode mirrors the display modes of a text track.
type TextTrackMode int

const (
	TrackDisabled TextTrackMode = iota
	TrackHidden
	TrackShowing
)

// TextTracks is the text track list of a media element.
type TextTracks interface {
	// Add attaches a track that loads its cues from url and returns its handle.
	Add(track SubtitleTrack, url string) (int, error)
	SetMode(id int, mode TextTrackMode) error
	RemoveAll() error
	Len() int
}

// MediaEvent is emitted by a media element.
type MediaEvent interface {
	mediaEvent()
}

type (
	// TimeUpdate reports the playhead position.
	TimeUpdate struct{ Time float64 }
	// DurationChange reports a new known duration.
	DurationChange struct{ Duration float64 }
	// Loaded reports that the media element can start playback of a directly set source.
	Loaded struct{}
	// Waiting reports that playback stopped because the buffer ran dry.
	Waiting struct{}
	// Resumed reports that playback progresses again after Waiting.
	Resumed struct{}
	// PlayStateChanged reports a play or pause that did not go through the session.
	PlayStateChanged struct{ Playing bool }
	// Seeked reports a completed seek.
	Seeked struct{ Time float64 }
	// MediaEnded reports that the playhead reached the end of the media.
	MediaEnded struct{}
	// MediaFailed reports a load or decode failure of the element itself.
	MediaFailed struct{ Err error }
)

func (TimeUpdate) mediaEvent()       {}
func (DurationChange) mediaEvent()   {}
func (Loaded) mediaEvent()           {}
func (Waiting) mediaEvent()          {}
func (Resumed) mediaEvent()          {}
func (PlayStateChanged) mediaEvent() {}
func (Seeked) mediaEvent()           {}
func (MediaEnded) mediaEvent()       {}
func (MediaFailed) mediaEvent()      {}

// Media is a media element able to play a source set directly.
// Implementations must be safe for concurrent use.
type Media interface {
	// CanPlayType reports whether the element plays the MIME type natively.
	CanPlayType(mime string) bool
	// SetSource loads url directly. Headers are attached to the element's own requests when supported.
	SetSource(url string, headers map[string]string) error
	Play() error
	Pause() error
	Seek(position float64) error
	SetVolume(volume float64) error
	SetRate(rate float64) error
	SetFullscreen(on bool) error
	CurrentTime() float64
	Duration() float64
	Buffered() []TimeRange
	TextTracks() TextTracks
	// Subscribe registers fn for every media event until the returned function is called.
	Subscribe(fn func(MediaEvent)) (unsubscribe func())
	// Reset unloads the current source.
	Reset() error
}

// Fragment is one decoded-ready media segment appended by the adaptive client.
type Fragment struct {
	Level    int
	Sequence uint64
	Start    float64
	Duration float64
	Data     []byte
}

// MediaSource is a Media that accepts fragments from an adaptive client.
type MediaSource interface {
	Media
	AppendFragment(f Fragment) error
	// Flush drops every buffered fragment.
	Flush()
	SetDuration(duration float64)
	// EndOfStream signals that no fragment follows the last appended one.
	EndOfStream()
}

// PictureInPicturer is implemented by media elements with a floating window mode.
type PictureInPicturer interface {
	PictureInPicture(on bool) error
}

// Caster is implemented by media elements able to hand playback to a remote device.
type Caster interface {
	Cast(device string) error
}

// Contains reports whether t lies within one of the ranges.
func Contains(ranges []TimeRange, t float64) bool {
	for _, r := range ranges {
		if t >= r.Start && t < r.End {
			return true
		}
	}
	return false
}

// BufferedEnd returns the end of the range containing t, or t when it is not buffered.
func BufferedEnd(ranges []TimeRange, t float64) float64 {
	for _, r := range ranges {
		if t >= r.Start && t <= r.End {
			return r.End
		}
	}
	return t
}
