package ecard

// ISO 7816-4 command header offsets.
const (
	offsetCla   = 0
	offsetIns   = 1
	offsetP1    = 2
	offsetP2    = 3
	offsetLc    = 4
	offsetCdata = 5
)

// A one-byte Lc caps the command data field.
const maxCommandData = 255

// Command is a decoded command APDU: CLA INS P1 P2 [Lc DATA(Lc)] [Le].
type Command struct {
	Cla  byte
	Ins  byte
	P1   byte
	P2   byte
	Data []byte

	// Le is the expected response length byte, present only when HasLe is set.
	Le    byte
	HasLe bool
}

// ParseCommand decodes a raw command buffer. Buffers shorter than the four
// header bytes, a declared Lc overrunning the buffer, and trailing bytes
// beyond a single Le are all rejected with ErrWrongLength.
func ParseCommand(raw []byte) (Command, error) {

	if len(raw) < offsetLc {
		return Command{}, ErrWrongLength
	}

	command := Command{
		Cla: raw[offsetCla],
		Ins: raw[offsetIns],
		P1:  raw[offsetP1],
		P2:  raw[offsetP2],
	}

	body := raw[offsetLc:]

	switch {

	case len(body) == 0:
		return command, nil

	case len(body) == 1:
		// A lone trailing byte is Le.
		command.Le = body[0]
		command.HasLe = true
		return command, nil
	}

	lc := int(body[0])

	// An Lc of zero cannot be re-encoded and is rejected rather than
	// guessed at; extended-length APDUs are out of scope.
	if lc == 0 || lc > len(body)-1 {
		return Command{}, ErrWrongLength
	}

	command.Data = make([]byte, lc)
	copy(command.Data, body[1:1+lc])

	switch len(body) - 1 - lc {

	case 0:

	case 1:
		command.Le = body[1+lc]
		command.HasLe = true

	default:
		return Command{}, ErrWrongLength
	}

	return command, nil

}

// Bytes re-encodes the command into its wire form. It is the exact inverse of
// ParseCommand for every buffer ParseCommand accepts.
func (command Command) Bytes() ([]byte, error) {

	if len(command.Data) > maxCommandData {
		return nil, ErrWrongLength
	}

	buffer := make([]byte, 0, offsetCdata+len(command.Data)+1)
	buffer = append(buffer, command.Cla, command.Ins, command.P1, command.P2)

	if len(command.Data) > 0 {
		buffer = append(buffer, byte(len(command.Data)))
		buffer = append(buffer, command.Data...)
	}

	if command.HasLe {
		buffer = append(buffer, command.Le)
	}

	return buffer, nil

}

// Response is a response APDU: DATA(0..) SW1 SW2.
type Response struct {
	Data []byte
	SW   uint16
}

// Bytes serializes the response, writing the data first and the two status
// word bytes last.
func (response Response) Bytes() []byte {

	buffer := make([]byte, len(response.Data)+2)
	copy(buffer, response.Data)
	buffer[len(response.Data)] = byte(response.SW >> 8)
	buffer[len(response.Data)+1] = byte(response.SW)

	return buffer

}

// ParseResponse decodes a raw response buffer for the host side.
func ParseResponse(raw []byte) (Response, error) {

	if len(raw) < 2 {
		return Response{}, ErrWrongLength
	}

	response := Response{
		SW: uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1]),
	}

	if len(raw) > 2 {
		response.Data = make([]byte, len(raw)-2)
		copy(response.Data, raw[:len(raw)-2])
	}

	return response, nil

}
