package picobldc

type PerMotorVal[T any] [2]T

const (
	Left  = 0
	Right = 1
)

type rawEncoderSource interface {
	RawEncoderCounts() (left, right int16, err error)
}

// EncoderTracker turns the board's wrapping 16-bit wheel positions into
// cumulative counts.  It must be polled often enough that no wheel turns
// more than half the register range between polls.
type EncoderTracker struct {
	board rawEncoderSource

	doneFirstPoll bool
	lastRawValues PerMotorVal[int16]

	accumulator PerMotorVal[int64]
}

func NewEncoderTracker(board rawEncoderSource) *EncoderTracker {
	return &EncoderTracker{
		board: board,
	}
}

func (d *EncoderTracker) Poll() error {
	l, r, err := d.board.RawEncoderCounts()
	if err != nil {
		return err
	}
	raw := PerMotorVal[int16]{l, r}

	if d.doneFirstPoll {
		for m, newD := range raw {
			oldD := d.lastRawValues[m]
			// int16 subtraction wraps, giving the short way round.
			delta := newD - oldD
			d.accumulator[m] += int64(delta)
		}
	}

	d.lastRawValues = raw
	d.doneFirstPoll = true
	return nil
}

// Rebase switches to a new board (e.g. after a bus reset).  The next poll
// only takes a baseline so the accumulated counts carry on unchanged.
func (d *EncoderTracker) Rebase(board rawEncoderSource) {
	d.board = board
	d.doneFirstPoll = false
}

func (d *EncoderTracker) Accumulated() PerMotorVal[int64] {
	return d.accumulator
}

func (d *EncoderTracker) Zero() {
	d.accumulator = PerMotorVal[int64]{}
}
