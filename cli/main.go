// Host-side APDU shell for the card emulator. Builds command APDUs with the
// skythen/apdu library, frames them with the emulator's 2-byte length prefix
// and prints the decoded response.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/skythen/apdu"
)

const defaultAddr = "localhost:9025"

var aids = map[string]string{
	"counter": "F0000000010002",
	"wallet":  "F0000000010003",
}

var statusWords = map[uint16]string{
	0x9000: "success",
	0x6700: "wrong length",
	0x6982: "security status not satisfied",
	0x6983: "authentication method blocked",
	0x6985: "conditions of use not satisfied",
	0x6A80: "wrong data",
	0x6D00: "instruction not supported",
	0x6E00: "class not supported",
	0x6F00: "unknown error",
}

type Transport struct {
	connection net.Conn
}

func (transport *Transport) Connect(addr string) error {

	connection, err := net.Dial("tcp", addr)

	if err != nil {
		return err
	}

	transport.connection = connection

	return nil

}

func (transport *Transport) Disconnect() {
	if transport.connection != nil {
		transport.connection.Close()
	}
}

// Send writes one framed command and reads one framed response.
func (transport *Transport) Send(command []byte) ([]byte, error) {

	frame := make([]byte, 2+len(command))
	binary.BigEndian.PutUint16(frame, uint16(len(command)))
	copy(frame[2:], command)

	if _, err := transport.connection.Write(frame); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	var length [2]byte

	if _, err := io.ReadFull(transport.connection, length[:]); err != nil {
		return nil, fmt.Errorf("read response length: %w", err)
	}

	response := make([]byte, binary.BigEndian.Uint16(length[:]))

	if _, err := io.ReadFull(transport.connection, response); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return response, nil

}

func main() {

	arguments := os.Args[1:]

	if len(arguments) == 0 {
		usage()
		return
	}

	addr := os.Getenv("ECARD_ADDR")

	if addr == "" {
		addr = defaultAddr
	}

	var transport Transport

	if err := transport.Connect(addr); err != nil {
		fmt.Println("cannot reach emulator:", err)
		os.Exit(1)
	}

	defer transport.Disconnect()

	if arguments[0] == "shell" {
		shell(&transport)
		return
	}

	if err := run(&transport, arguments); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

}

func run(transport *Transport, arguments []string) error {

	command, err := build(arguments)

	if err != nil {
		return err
	}

	response, err := transport.Send(command)

	if err != nil {
		return err
	}

	printResponse(response)

	return nil

}

// build turns a shell command into a raw command APDU.
func build(arguments []string) ([]byte, error) {

	switch arguments[0] {

	case "select":
		if len(arguments) != 2 {
			return nil, fmt.Errorf("usage: select counter|wallet|<hex aid>")
		}

		aidHex, known := aids[arguments[1]]

		if !known {
			aidHex = arguments[1]
		}

		aid, err := hex.DecodeString(strings.ToUpper(aidHex))

		if err != nil {
			return nil, fmt.Errorf("bad aid %q: %w", arguments[1], err)
		}

		return (&apdu.Capdu{Cla: 0x00, Ins: 0xA4, P1: 0x04, Data: aid}).Bytes()

	case "verify":
		if len(arguments) != 2 {
			return nil, fmt.Errorf("usage: verify <pin>")
		}

		return (&apdu.Capdu{Cla: 0x80, Ins: 0x20, Data: []byte(arguments[1])}).Bytes()

	case "change-pin":
		if len(arguments) != 3 {
			return nil, fmt.Errorf("usage: change-pin <old> <new>")
		}

		data := append([]byte(arguments[1]), []byte(arguments[2])...)

		return (&apdu.Capdu{Cla: 0x80, Ins: 0x24, P2: byte(len(arguments[1])), Data: data}).Bytes()

	case "balance":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x50}).Bytes()

	case "credit", "debit":
		if len(arguments) != 2 {
			return nil, fmt.Errorf("usage: %s <amount>", arguments[0])
		}

		amount, err := strconv.ParseUint(arguments[1], 10, 16)

		if err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", arguments[1], err)
		}

		ins := byte(0x30)

		if arguments[0] == "debit" {
			ins = 0x40
		}

		data := []byte{byte(amount >> 8), byte(amount)}

		return (&apdu.Capdu{Cla: 0x80, Ins: ins, Data: data}).Bytes()

	case "history":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x60}).Bytes()

	case "status":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x52}).Bytes()

	case "counter":
		return buildCounter(arguments[1:])

	case "raw":
		if len(arguments) != 2 {
			return nil, fmt.Errorf("usage: raw <hex apdu>")
		}

		return hex.DecodeString(strings.ReplaceAll(arguments[1], " ", ""))

	default:
		return nil, fmt.Errorf("unknown command %q", arguments[0])
	}

}

func buildCounter(arguments []string) ([]byte, error) {

	if len(arguments) == 0 {
		return nil, fmt.Errorf("usage: counter get|inc|dec|add|sub|mul|set|limit|info|reset|history ...")
	}

	parse16 := func() ([]byte, error) {
		if len(arguments) != 2 {
			return nil, fmt.Errorf("usage: counter %s <value>", arguments[0])
		}
		value, err := strconv.ParseUint(arguments[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", arguments[1], err)
		}
		return []byte{byte(value >> 8), byte(value)}, nil
	}

	parse32 := func() ([]byte, error) {
		if len(arguments) != 2 && arguments[0] != "limit" {
			return nil, fmt.Errorf("usage: counter %s <value>", arguments[0])
		}
		value, err := strconv.ParseUint(arguments[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", arguments[1], err)
		}
		data := make([]byte, 4)
		binary.BigEndian.PutUint32(data, uint32(value))
		return data, nil
	}

	parseP1 := func() (byte, error) {
		if len(arguments) == 1 {
			return 0, nil
		}
		value, err := strconv.ParseUint(arguments[1], 10, 8)
		if err != nil {
			return 0, fmt.Errorf("bad value %q: %w", arguments[1], err)
		}
		return byte(value), nil
	}

	switch arguments[0] {

	case "get":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x10}).Bytes()

	case "inc", "dec", "mul":
		p1, err := parseP1()

		if err != nil {
			return nil, err
		}

		ins := map[string]byte{"inc": 0x11, "dec": 0x12, "mul": 0x19}[arguments[0]]

		return (&apdu.Capdu{Cla: 0x80, Ins: ins, P1: p1}).Bytes()

	case "add", "sub":
		data, err := parse16()

		if err != nil {
			return nil, err
		}

		ins := byte(0x17)

		if arguments[0] == "sub" {
			ins = 0x18
		}

		return (&apdu.Capdu{Cla: 0x80, Ins: ins, Data: data}).Bytes()

	case "set":
		data, err := parse32()

		if err != nil {
			return nil, err
		}

		return (&apdu.Capdu{Cla: 0x80, Ins: 0x14, Data: data}).Bytes()

	case "limit":
		if len(arguments) != 3 || (arguments[2] != "on" && arguments[2] != "off") {
			return nil, fmt.Errorf("usage: counter limit <value> on|off")
		}

		data, err := parse32()

		if err != nil {
			return nil, err
		}

		var p1 byte

		if arguments[2] == "on" {
			p1 = 0x01
		}

		return (&apdu.Capdu{Cla: 0x80, Ins: 0x15, P1: p1, Data: data}).Bytes()

	case "info":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x16}).Bytes()

	case "reset":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x13}).Bytes()

	case "history":
		return (&apdu.Capdu{Cla: 0x80, Ins: 0x1A}).Bytes()

	default:
		return nil, fmt.Errorf("unknown counter command %q", arguments[0])
	}

}

func printResponse(response []byte) {

	rapdu, err := apdu.ParseRapdu(response)

	if err != nil {
		fmt.Println("unparseable response:", hex.EncodeToString(response))
		return
	}

	sw := uint16(rapdu.SW1)<<8 | uint16(rapdu.SW2)

	meaning, known := statusWords[sw]

	if !known && sw&0xFFF0 == 0x63C0 {
		meaning = fmt.Sprintf("wrong pin, %d tries remaining", sw&0x000F)
		known = true
	}

	if !known {
		meaning = "?"
	}

	if len(rapdu.Data) > 0 {
		fmt.Printf("Data: %s\n", strings.ToUpper(hex.EncodeToString(rapdu.Data)))
	}

	fmt.Printf("SW:   %04X (%s)\n", sw, meaning)

}

func shell(transport *Transport) {

	fmt.Println("ecard shell — enter commands or raw hex APDUs, 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)

	for {

		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		if line == "quit" || line == "exit" {
			break
		}

		arguments := strings.Fields(line)

		// A bare hex string is sent as a raw APDU.
		if len(arguments) == 1 && isHex(arguments[0]) {
			arguments = []string{"raw", arguments[0]}
		}

		if err := run(transport, arguments); err != nil {
			fmt.Println(err)
		}

	}

}

func isHex(value string) bool {

	if len(value) < 8 || len(value)%2 != 0 {
		return false
	}

	_, err := hex.DecodeString(value)

	return err == nil

}

func usage() {
	fmt.Println(`usage: cli <command>

  select counter|wallet|<hex aid>
  verify <pin>
  change-pin <old> <new>
  balance | credit <n> | debit <n> | history | status
  counter get|inc [n]|dec [n]|add <n>|sub <n>|mul <n>|set <n>|limit <n> on|off|info|reset|history
  raw <hex apdu>
  shell

The emulator address is taken from ECARD_ADDR (default ` + defaultAddr + `).`)
}
