package ecard

// Instruction set of the wallet applet (AID F0 00 00 00 01 00 03). PIN
// instructions follow ISO 7816 VERIFY / CHANGE REFERENCE DATA numbering.
const (
	claWallet byte = 0x80

	insVerifyPin     byte = 0x20
	insChangePin     byte = 0x24
	insCredit        byte = 0x30
	insDebit         byte = 0x40
	insGetBalance    byte = 0x50
	insWalletStatus  byte = 0x52
	insWalletHistory byte = 0x60
)

const (
	walletHistoryDepth = 16
	walletPinTryLimit  = 3
	walletVersionMajor = 0x01
	walletVersionMinor = 0x00
)

// The install-time default; replaced over the wire with CHANGE PIN.
var defaultWalletPin = []byte{'1', '2', '3', '4'}

// Wallet is a PIN-gated 16-bit balance with a transaction history ring.
// Credits and debits require a validated session; balance and history reads
// do not.
type Wallet struct {
	pin        *Pin
	balance    *Store
	history    *History
	operations uint16
	dispatcher *Dispatcher

	// ResetOnSelect forces re-authentication after every (re)selection
	// instead of only after deselection.
	ResetOnSelect bool
}

func NewWallet() *Wallet {

	pin, err := NewPin(walletPinTryLimit, defaultWalletPin)

	if err != nil {
		// The default PIN is a package constant of legal length.
		panic(err)
	}

	wallet := &Wallet{
		pin:           pin,
		balance:       NewStore16(0),
		history:       NewHistory(walletHistoryDepth),
		dispatcher:    NewDispatcher(),
		ResetOnSelect: true,
	}

	wallet.dispatcher.Handle(claWallet, insVerifyPin, wallet.verifyPin)
	wallet.dispatcher.Handle(claWallet, insChangePin, wallet.changePin)
	wallet.dispatcher.Handle(claWallet, insCredit, wallet.credit)
	wallet.dispatcher.Handle(claWallet, insDebit, wallet.debit)
	wallet.dispatcher.Handle(claWallet, insGetBalance, wallet.getBalance)
	wallet.dispatcher.Handle(claWallet, insWalletStatus, wallet.getStatus)
	wallet.dispatcher.Handle(claWallet, insWalletHistory, wallet.getHistory)

	return wallet

}

func (wallet *Wallet) Select() bool {

	if wallet.ResetOnSelect {
		wallet.pin.Reset()
	}

	return true

}

func (wallet *Wallet) Deselect() {
	wallet.pin.Reset()
}

func (wallet *Wallet) Process(command Command) ([]byte, error) {

	if command.Cla == claWallet {
		wallet.operations++
	}

	return wallet.dispatcher.Dispatch(command)

}

// Balance reads the current balance, for hosts embedding the applet
// directly.
func (wallet *Wallet) Balance() int64 {
	return wallet.balance.Value()
}

// Data is the candidate PIN.
func (wallet *Wallet) verifyPin(command Command) ([]byte, error) {
	return nil, wallet.pin.Check(command.Data)
}

// P2 is the old PIN length; data is old PIN followed by new PIN. Both
// lengths are validated before the old value is checked, so a malformed
// command consumes no try and leaves no validation behind. The old value is
// checked in the same call, consuming a try when wrong.
func (wallet *Wallet) changePin(command Command) ([]byte, error) {

	oldLength := int(command.P2)
	newLength := len(command.Data) - oldLength

	if oldLength < PinMinLength || oldLength > PinMaxLength ||
		newLength < PinMinLength || newLength > PinMaxLength {
		return nil, ErrWrongLength
	}

	return nil, wallet.pin.Change(command.Data[:oldLength], command.Data[oldLength:])

}

// transact stages the candidate balance, then commits balance and history as
// one step; a rejected delta leaves both untouched.
func (wallet *Wallet) transact(delta int64) ([]byte, error) {

	if !wallet.pin.Validated() {
		return nil, ErrSecurityNotSatisfied
	}

	var candidate int64
	var err error

	if delta >= 0 {
		candidate, err = wallet.balance.stageAdd(delta)
	} else {
		candidate, err = wallet.balance.stageSubtract(-delta)
	}

	if err != nil {
		return nil, err
	}

	wallet.balance.commit(candidate)
	wallet.history.Write(delta)

	return be16(candidate), nil

}

// Data is the amount, 2 bytes big-endian.
func (wallet *Wallet) credit(command Command) ([]byte, error) {

	if len(command.Data) != 2 {
		return nil, ErrWrongLength
	}

	return wallet.transact(parseBe16(command.Data))

}

func (wallet *Wallet) debit(command Command) ([]byte, error) {

	if len(command.Data) != 2 {
		return nil, ErrWrongLength
	}

	return wallet.transact(-parseBe16(command.Data))

}

func (wallet *Wallet) getBalance(command Command) ([]byte, error) {
	return be16(wallet.balance.Value()), nil
}

// Response: version(2) triesRemaining(1) validated(1) operationCount(2).
// The field order is this applet's own and deliberately not the legacy
// GET STATUS layout that interleaved a usage counter and data length with
// the PIN state.
func (wallet *Wallet) getStatus(command Command) ([]byte, error) {

	status := make([]byte, 0, 6)
	status = append(status, walletVersionMajor, walletVersionMinor)
	status = append(status, wallet.pin.TriesRemaining())

	if wallet.pin.Validated() {
		status = append(status, 0x01)
	} else {
		status = append(status, 0x00)
	}

	status = append(status, byte(wallet.operations>>8), byte(wallet.operations))

	return status, nil

}

// Response: up to walletHistoryDepth signed deltas, 2 bytes big-endian each,
// most recent first.
func (wallet *Wallet) getHistory(command Command) ([]byte, error) {

	entries := wallet.history.Entries()
	data := make([]byte, 0, len(entries)*2)

	for _, delta := range entries {
		data = append(data, be16(delta)...)
	}

	return data, nil

}
