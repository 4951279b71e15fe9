package codec

import (
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
)

// Compressor lifecycle states.
const (
	stateStart    = "start"
	stateHeader   = "header"
	stateScanning = "scanning"
	stateDone     = "done"
)

// Lifecycle events.
const (
	eventBegin  = "begin"
	eventScan   = "scan"
	eventFinish = "finish"
	eventAbort  = "abort"
)

func (c *Compressor) newFSM() *fsm.FSM {
	return fsm.NewFSM(
		stateStart,
		fsm.Events{
			{Name: eventBegin, Src: []string{stateStart}, Dst: stateHeader},
			{Name: eventScan, Src: []string{stateHeader}, Dst: stateScanning},
			{Name: eventFinish, Src: []string{stateScanning}, Dst: stateDone},
			{Name: eventAbort, Src: []string{stateHeader, stateScanning, stateDone}, Dst: stateStart},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				c.log().Tracef("codec: [%s -> %s] %s", e.Src, e.Dst, e.Event)
			},
		},
	)
}

// State returns the name of the current lifecycle state, or "destroyed".
func (c *Compressor) State() string {
	if c.fsm == nil {
		return "destroyed"
	}
	return c.fsm.Current()
}

func (c *Compressor) requireState(want string) error {
	if c.fsm == nil {
		return errors.New("codec: compressor used after Destroy")
	}
	if !c.fsm.Is(want) {
		return errors.Errorf("codec: improper call in state %s", c.fsm.Current())
	}
	return nil
}

func (c *Compressor) transition(event string) error {
	if c.fsm == nil {
		return errors.New("codec: compressor used after Destroy")
	}
	err := c.fsm.Event(event)
	if _, ok := err.(fsm.NoTransitionError); err != nil && !ok {
		return errors.Wrapf(err, "codec: %s in state %s", event, c.fsm.Current())
	}
	return nil
}
