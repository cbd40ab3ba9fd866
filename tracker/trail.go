package tracker

import (
	"github.com/swdee/go-cvlab/geom"
	"sync"
)

// Track represents a track history
type Track struct {
	points []geom.Point
}

// Trail is the struct to keep a history of object boundary centers used for
// drawing a trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of boundary centers keyed by object ID
	history map[int]*Track
	sync.Mutex
}

// NewTrail returns a new trail history track instance.  Size is the number
// of most recent centers to keep and specifies the maximum length of the
// trail to maintain
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[int]*Track),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[int]*Track)
}

// Add records the current boundary center of the object
func (t *Trail) Add(obj *Object) {
	t.Lock()
	defer t.Unlock()

	// init map if no history exists yet for object id
	if _, exists := t.history[obj.ID]; !exists {
		t.history[obj.ID] = &Track{}
	}

	track := t.history[obj.ID]
	track.points = append(track.points, obj.Quad.Centroid())

	// check if history is exceeded and drop oldest point
	if len(track.points) > t.size {
		track.points = track.points[1:]
	}
}

// GetPoints gets a copy of the point history for a specific object id
func (t *Trail) GetPoints(id int) []geom.Point {
	t.Lock()
	defer t.Unlock()

	if track, exists := t.history[id]; exists {
		return geom.ClonePoints(track.points)
	}

	// no history yet
	return nil
}
