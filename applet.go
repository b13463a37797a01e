package ecard

// Applet is the capability set every on-card application exposes. An
// implementation is chosen once at install time; all of its persistent state
// lives behind this interface.
type Applet interface {

	// Select is invoked when the applet becomes the command target.
	Select() bool

	// Deselect is invoked when the applet stops being the command target or
	// when a session ends; validation state must not survive it.
	Deselect()

	// Process handles one decoded command and returns response data or a
	// status word failure.
	Process(command Command) ([]byte, error)
}

// The SELECT-by-name header intercepted before dispatch.
const (
	claISO         byte = 0x00
	insSelect      byte = 0xA4
	p1SelectByName byte = 0x04
)

// Card owns the installed applets and turns raw command buffers into raw
// response buffers. It executes exactly one command at a time and is not safe
// for concurrent use; the surrounding transport serializes access.
type Card struct {
	applets map[string]Applet
	aids    []string
	active  string
}

func NewCard() *Card {
	return &Card{applets: make(map[string]Applet)}
}

// Install registers an applet under its AID. The first installed applet
// becomes the active command target, matching the single-applet simulator
// default.
func (card *Card) Install(aid []byte, applet Applet) error {

	if len(aid) == 0 {
		return ErrWrongData
	}

	key := string(aid)

	if _, exists := card.applets[key]; exists {
		return ErrConditionsNotSatisfied
	}

	card.applets[key] = applet
	card.aids = append(card.aids, key)

	if card.active == "" {
		card.active = key
		applet.Select()
	}

	return nil

}

// Transmit processes one raw command buffer and always returns a complete
// response buffer; every failure is folded into the status word.
func (card *Card) Transmit(raw []byte) []byte {

	// SELECT is intercepted before dispatch and never fails, even when the
	// buffer is malformed.
	if isSelectHeader(raw) {
		return card.processSelect(raw)
	}

	command, err := ParseCommand(raw)

	if err != nil {
		return Response{SW: statusWord(err)}.Bytes()
	}

	applet := card.applets[card.active]

	if applet == nil {
		return Response{SW: SwUnknown}.Bytes()
	}

	data, err := applet.Process(command)

	if err != nil {
		// No data accompanies a failure.
		return Response{SW: statusWord(err)}.Bytes()
	}

	return Response{Data: data, SW: SwSuccess}.Bytes()

}

func isSelectHeader(raw []byte) bool {
	return len(raw) >= 2 && raw[offsetCla] == claISO && raw[offsetIns] == insSelect
}

// processSelect switches the active applet when the command carries a known
// AID. Anything else — truncated buffer, absent or unknown AID — no-ops
// successfully: selection never mutates applet state and never fails.
func (card *Card) processSelect(raw []byte) []byte {

	command, err := ParseCommand(raw)

	if err == nil && command.P1 == p1SelectByName && len(command.Data) > 0 {

		if next, known := card.applets[string(command.Data)]; known {

			if current := card.applets[card.active]; current != nil {
				current.Deselect()
			}

			next.Select()
			card.active = string(command.Data)

		}

	}

	return Response{SW: SwSuccess}.Bytes()

}

// EndSession deselects and reselects the active applet around a session
// boundary, so session-scoped validation is dropped while the applet stays
// the command target.
func (card *Card) EndSession() {

	if applet := card.applets[card.active]; applet != nil {
		applet.Deselect()
		applet.Select()
	}

}
