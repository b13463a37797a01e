// Card emulator: exposes one card over TCP with 2-byte big-endian length
// framing on both command and response, the framing jCardSim-style remote
// servers speak. Connections may arrive concurrently but every command is
// serialized onto the single card.
package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	ecard "github.com/schjonhaug/ecard-engine-go"
)

type config struct {
	Addr         string `env:"ECARD_ADDR" envDefault:":9025"`
	StateFile    string `env:"ECARD_STATE"`
	PinSticky    bool   `env:"ECARD_PIN_STICKY" envDefault:"false"`
	LogExchanges bool   `env:"ECARD_LOG_APDU" envDefault:"true"`
}

var (
	counterAid = []byte{0xF0, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02}
	walletAid  = []byte{0xF0, 0x00, 0x00, 0x00, 0x01, 0x00, 0x03}
)

type server struct {
	cfg config
	log zerolog.Logger

	// mu serializes the command stream: the card assumes exclusive,
	// non-reentrant access.
	mu   sync.Mutex
	card *ecard.Card
}

func main() {

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var cfg config

	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().Err(err).Msg("parse configuration")
	}

	card := ecard.NewCard()

	wallet := ecard.NewWallet()
	wallet.ResetOnSelect = !cfg.PinSticky

	if err := card.Install(counterAid, ecard.NewCounter()); err != nil {
		logger.Fatal().Err(err).Msg("install counter applet")
	}

	if err := card.Install(walletAid, wallet); err != nil {
		logger.Fatal().Err(err).Msg("install wallet applet")
	}

	if cfg.StateFile != "" {

		err := card.LoadState(cfg.StateFile)

		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Info().Str("file", cfg.StateFile).Msg("no state file yet, starting fresh")
		case err != nil:
			logger.Fatal().Err(err).Str("file", cfg.StateFile).Msg("load state")
		default:
			logger.Info().Str("file", cfg.StateFile).Msg("state restored")
		}

	}

	listener, err := net.Listen("tcp", cfg.Addr)

	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Addr).Msg("listen")
	}

	logger.Info().Str("addr", listener.Addr().String()).Msg("card emulator listening")

	srv := &server{cfg: cfg, log: logger, card: card}

	for {

		connection, err := listener.Accept()

		if err != nil {
			logger.Error().Err(err).Msg("accept")
			continue
		}

		go srv.serve(connection)

	}

}

func (srv *server) serve(connection net.Conn) {

	defer connection.Close()

	logger := srv.log.With().Str("client", connection.RemoteAddr().String()).Logger()
	logger.Info().Msg("client connected")

	for {

		command, err := readFrame(connection)

		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Warn().Err(err).Msg("read frame")
			}
			break
		}

		response := srv.exchange(command, logger)

		if err := writeFrame(connection, response); err != nil {
			logger.Warn().Err(err).Msg("write frame")
			break
		}

	}

	srv.endSession()
	logger.Info().Msg("client disconnected")

}

// exchange runs one command against the card and persists the state behind
// the commit.
func (srv *server) exchange(command []byte, logger zerolog.Logger) []byte {

	srv.mu.Lock()
	defer srv.mu.Unlock()

	response := srv.card.Transmit(command)

	if srv.cfg.StateFile != "" {
		if err := srv.card.SaveState(srv.cfg.StateFile); err != nil {
			logger.Error().Err(err).Msg("save state")
		}
	}

	if srv.cfg.LogExchanges {
		sw := uint16(response[len(response)-2])<<8 | uint16(response[len(response)-1])
		logger.Debug().
			Str("command", hex.EncodeToString(command)).
			Str("response", hex.EncodeToString(response)).
			Uint16("sw", sw).
			Msg("apdu exchange")
	}

	return response

}

// endSession drops the session validation when a client disconnects, so the
// next connection starts unauthenticated.
func (srv *server) endSession() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.card.EndSession()
}

func readFrame(reader io.Reader) ([]byte, error) {

	var length [2]byte

	if _, err := io.ReadFull(reader, length[:]); err != nil {
		return nil, err
	}

	frame := make([]byte, binary.BigEndian.Uint16(length[:]))

	if _, err := io.ReadFull(reader, frame); err != nil {
		return nil, err
	}

	return frame, nil

}

func writeFrame(writer io.Writer, frame []byte) error {

	buffer := make([]byte, 2+len(frame))
	binary.BigEndian.PutUint16(buffer, uint16(len(frame)))
	copy(buffer[2:], frame)

	_, err := writer.Write(buffer)

	return err

}
