package ecard

// Instruction set of the counter applet (AID F0 00 00 00 01 00 02).
const (
	claCounter byte = 0x80

	insGetCounter     byte = 0x10
	insIncrement      byte = 0x11
	insDecrement      byte = 0x12
	insReset          byte = 0x13
	insSetValue       byte = 0x14
	insSetLimit       byte = 0x15
	insGetInfo        byte = 0x16
	insAddValue       byte = 0x17
	insSubValue       byte = 0x18
	insMultiply       byte = 0x19
	insCounterHistory byte = 0x1A
)

const counterHistoryDepth = 16

// Counter is a 32-bit persistent counter with an optional limit and a
// history ring of the signed deltas applied to it.
type Counter struct {
	value      *Store
	history    *History
	operations uint16
	dispatcher *Dispatcher
}

func NewCounter() *Counter {

	counter := &Counter{
		value:      NewStore32(0),
		history:    NewHistory(counterHistoryDepth),
		dispatcher: NewDispatcher(),
	}

	counter.dispatcher.Handle(claCounter, insGetCounter, counter.getCounter)
	counter.dispatcher.Handle(claCounter, insIncrement, counter.increment)
	counter.dispatcher.Handle(claCounter, insDecrement, counter.decrement)
	counter.dispatcher.Handle(claCounter, insReset, counter.reset)
	counter.dispatcher.Handle(claCounter, insSetValue, counter.setValue)
	counter.dispatcher.Handle(claCounter, insSetLimit, counter.setLimit)
	counter.dispatcher.Handle(claCounter, insGetInfo, counter.getInfo)
	counter.dispatcher.Handle(claCounter, insAddValue, counter.addValue)
	counter.dispatcher.Handle(claCounter, insSubValue, counter.subValue)
	counter.dispatcher.Handle(claCounter, insMultiply, counter.multiply)
	counter.dispatcher.Handle(claCounter, insCounterHistory, counter.getHistory)

	return counter

}

// Select always succeeds; the counter carries no session state.
func (counter *Counter) Select() bool {
	return true
}

func (counter *Counter) Deselect() {
}

func (counter *Counter) Process(command Command) ([]byte, error) {

	data, err := counter.dispatcher.Dispatch(command)

	if err != nil {
		return nil, err
	}

	counter.operations++

	return data, nil

}

// add stages the candidate, then commits value and history as one step.
func (counter *Counter) add(delta int64) ([]byte, error) {

	candidate, err := counter.value.stageAdd(delta)

	if err != nil {
		return nil, err
	}

	counter.value.commit(candidate)
	counter.history.Write(delta)

	return be32(candidate), nil

}

func (counter *Counter) subtract(delta int64) ([]byte, error) {

	candidate, err := counter.value.stageSubtract(delta)

	if err != nil {
		return nil, err
	}

	counter.value.commit(candidate)
	counter.history.Write(-delta)

	return be32(candidate), nil

}

func (counter *Counter) getCounter(command Command) ([]byte, error) {
	return be32(counter.value.Value()), nil
}

// P1 is the increment; zero means one.
func (counter *Counter) increment(command Command) ([]byte, error) {

	delta := int64(command.P1)

	if delta == 0 {
		delta = 1
	}

	return counter.add(delta)

}

func (counter *Counter) decrement(command Command) ([]byte, error) {

	delta := int64(command.P1)

	if delta == 0 {
		delta = 1
	}

	return counter.subtract(delta)

}

func (counter *Counter) reset(command Command) ([]byte, error) {

	delta := -counter.value.Value()

	counter.value.commit(0)

	// A reset of an already-zero counter is a no-op; keep it out of the
	// history.
	if delta != 0 {
		counter.history.Write(delta)
	}

	return nil, nil

}

// Data is the new value, 4 bytes big-endian.
func (counter *Counter) setValue(command Command) ([]byte, error) {

	if len(command.Data) != 4 {
		return nil, ErrWrongLength
	}

	candidate, err := counter.value.stageSet(parseBe32(command.Data))

	if err != nil {
		return nil, err
	}

	delta := candidate - counter.value.Value()

	counter.value.commit(candidate)
	counter.history.Write(delta)

	return nil, nil

}

// P1 enables (01) or disables the limit; data is the limit, 4 bytes
// big-endian.
func (counter *Counter) setLimit(command Command) ([]byte, error) {

	if len(command.Data) != 4 {
		return nil, ErrWrongLength
	}

	return nil, counter.value.SetBound(parseBe32(command.Data), command.P1 == 0x01)

}

// Response: value(4) limit(4) limitEnabled(1) operationCount(2).
func (counter *Counter) getInfo(command Command) ([]byte, error) {

	bound, enabled := counter.value.Bound()

	info := make([]byte, 0, 11)
	info = append(info, be32(counter.value.Value())...)
	info = append(info, be32(bound)...)

	if enabled {
		info = append(info, 0x01)
	} else {
		info = append(info, 0x00)
	}

	info = append(info, byte(counter.operations>>8), byte(counter.operations))

	return info, nil

}

// Data is the addend, 2 bytes big-endian.
func (counter *Counter) addValue(command Command) ([]byte, error) {

	if len(command.Data) != 2 {
		return nil, ErrWrongLength
	}

	return counter.add(parseBe16(command.Data))

}

func (counter *Counter) subValue(command Command) ([]byte, error) {

	if len(command.Data) != 2 {
		return nil, ErrWrongLength
	}

	return counter.subtract(parseBe16(command.Data))

}

// P1 is the factor; zero means two.
func (counter *Counter) multiply(command Command) ([]byte, error) {

	factor := int64(command.P1)

	if factor == 0 {
		factor = 2
	}

	candidate, err := counter.value.stageMultiply(factor)

	if err != nil {
		return nil, err
	}

	delta := candidate - counter.value.Value()

	counter.value.commit(candidate)
	counter.history.Write(delta)

	return be32(candidate), nil

}

// Response: up to counterHistoryDepth signed deltas, 4 bytes big-endian
// each, most recent first.
func (counter *Counter) getHistory(command Command) ([]byte, error) {

	entries := counter.history.Entries()
	data := make([]byte, 0, len(entries)*4)

	for _, delta := range entries {
		data = append(data, be32(delta)...)
	}

	return data, nil

}
