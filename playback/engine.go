package playback

import "github.com/anisan-cli/anistream/resolve"

// ErrorKind classifies adaptive client errors.
type ErrorKind int

const (
	NetworkError ErrorKind = iota
	MediaError
	OtherError
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network"
	case MediaError:
		return "media"
	default:
		return "other"
	}
}

// Event is emitted by an adaptive client.
type Event interface {
	engineEvent()
}

type (
	// ManifestParsed reports the quality ladder of a freshly loaded manifest.
	ManifestParsed struct {
		Levels []Level
		// Live is set for playlists without an end marker.
		Live bool
	}
	// LevelSwitched reports the level used by subsequent fragments.
	LevelSwitched struct{ Level int }
	// FragBuffered reports a fragment appended to the media source.
	FragBuffered struct {
		Level    int
		Start    float64
		Duration float64
		Bytes    int
	}
	// BufferStalled reports that the client could not keep up with the playhead.
	BufferStalled struct{}
	// EngineError reports a failure. Non-fatal errors are informational.
	EngineError struct {
		Kind  ErrorKind
		Fatal bool
		Err   error
	}
)

func (ManifestParsed) engineEvent() {}
func (LevelSwitched) engineEvent()  {}
func (FragBuffered) engineEvent()   {}
func (BufferStalled) engineEvent()  {}
func (EngineError) engineEvent()    {}

// Engine is an adaptive HLS client bound to one session.
// Methods never block on network activity.
type Engine interface {
	Attach(media MediaSource)
	// Load fetches the manifest at url and starts loading fragments.
	Load(url string)
	// StartLoad restarts fragment loading at position.
	StartLoad(position float64)
	// SetCurrentLevel forces a level, or re-enables automatic switching with AutoLevel.
	SetCurrentLevel(id int)
	// CapAutoLevel restricts automatic switching to levels not higher than id. AutoLevel lifts the cap.
	CapAutoLevel(id int)
	// RecoverMediaError resynchronizes the media source without refetching the manifest.
	RecoverMediaError()
	// Destroy stops all network activity. No event is emitted once it returns.
	Destroy()
}

// EngineOptions is handed to an EngineFactory for every adaptive session.
type EngineOptions struct {
	Config   Config
	Resolver *resolve.Resolver
	// Headers are the upstream request headers of the session.
	Headers map[string]string
	Emit    func(Event)
}

// EngineFactory builds an adaptive client.
type EngineFactory func(opts EngineOptions) Engine
