package fvg

import "time"

// State is the resumable part of an Engine: the open gaps of each
// direction and the position of the last scanned bar. Inverted gaps are
// never revisited and are not part of it.
type State struct {
	NextIndex int       `json:"next_index"`
	NextID    int       `json:"next_id"`
	LastTime  time.Time `json:"last_time"`
	Bullish   []Gap     `json:"bullish"`
	Bearish   []Gap     `json:"bearish"`
}

// Started reports whether the state was taken after at least one bar was
// scanned.
func (s State) Started() bool {
	return s.NextIndex > 0
}

func (e *Engine) State() State {
	return State{
		NextIndex: e.next,
		NextID:    e.nextID,
		LastTime:  e.lastTime,
		Bullish:   e.OpenBullish(),
		Bearish:   e.OpenBearish(),
	}
}

// Restore builds an engine that continues from st. The next Scan must be
// given a series whose bar at st.NextIndex-1 has timestamp st.LastTime.
func Restore(cfg Config, st State) *Engine {
	e := New(cfg)
	e.next = st.NextIndex
	e.lastTime = st.LastTime
	if st.NextID > 0 {
		e.nextID = st.NextID
	}
	e.bullish = append([]Gap(nil), st.Bullish...)
	e.bearish = append([]Gap(nil), st.Bearish...)
	return e
}
