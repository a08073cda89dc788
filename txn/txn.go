// Package txn models the slice of a programmable transaction's wire
// format that the gas pool core must reason about: who pays gas, what
// it pays with, and whether any command tries to spend the gas coin as
// a regular input. It is intentionally narrow — it is not a general
// transaction builder, only the shape spec section 4.5's validity rule
// and execution path need.
package txn

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gaspool-io/gaspool/types"
)

// ArgumentKind distinguishes the handful of places a command argument
// can come from.
type ArgumentKind int

const (
	// ArgumentInput references one of the transaction's top-level inputs.
	ArgumentInput ArgumentKind = iota
	// ArgumentGasCoin is the implicit, reserved reference to the
	// transaction's gas payment. It may only ever be consumed by the
	// runtime to pay gas — never passed to a command.
	ArgumentGasCoin
	// ArgumentResult references the output of an earlier command.
	ArgumentResult
	// ArgumentNestedResult references one value out of a multi-value
	// result of an earlier command.
	ArgumentNestedResult
)

// Argument is one value fed into a command: an input, the gas coin
// pseudo-input, or the result of a previous command.
type Argument struct {
	Kind     ArgumentKind
	Index    uint16
	SubIndex uint16 // only meaningful when Kind == ArgumentNestedResult
}

// IsGasCoin reports whether this argument is the reserved gas-coin
// pseudo-input.
func (a Argument) IsGasCoin() bool {
	return a.Kind == ArgumentGasCoin
}

// CommandKind enumerates the programmable transaction command types
// relevant to gas-coin misuse detection.
type CommandKind int

const (
	CommandMoveCall CommandKind = iota
	CommandTransferObjects
	CommandSplitCoins
	CommandMergeCoins
	CommandPublish
	CommandMakeMoveVec
	CommandUpgrade
)

// Command is one step of a programmable transaction. Arguments holds
// every argument the command consumes, flattened, in the order the
// command-specific fields would appear on the wire (e.g. for
// SplitCoins: the coin being split followed by the split amounts). It
// is always empty for Publish and Upgrade, which take no object
// arguments.
type Command struct {
	Kind      CommandKind
	Arguments []Argument
}

// ProgrammableTransaction is an ordered sequence of commands.
type ProgrammableTransaction struct {
	Commands []Command
}

// TransactionKind is the executable payload of a transaction. Only the
// programmable variant is modeled; other kinds (e.g. system
// transactions) never flow through the gas pool.
type TransactionKind struct {
	Programmable *ProgrammableTransaction
}

// GasData describes how a transaction pays for its own execution: the
// sponsor footing the bill, the coins used as payment, and the budget
// and price negotiated at reservation time.
type GasData struct {
	Owner   types.Address
	Payment []types.ObjectRef
	Budget  uint64
	Price   uint64
}

// TransactionData is the unsigned transaction body the orchestrator
// receives from a caller and eventually signs and submits.
type TransactionData struct {
	Sender  types.Address
	Kind    TransactionKind
	GasData GasData
}

// Signature is an opaque, already-serialized signature over a
// TransactionData's BCS-equivalent encoding. The gas pool core never
// inspects its contents; it only ever passes signatures through.
type Signature []byte

// Hash returns a deterministic digest of tx, the value a Signer
// actually signs over. It is a canonical byte encoding, not a wire
// format; only its stability across calls matters.
func (t TransactionData) Hash() types.Digest {
	h := sha256.New()
	h.Write(t.Sender[:])
	h.Write(t.GasData.Owner[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], t.GasData.Budget)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], t.GasData.Price)
	h.Write(buf[:])
	for _, ref := range t.GasData.Payment {
		h.Write(ref.ObjectID[:])
		binary.BigEndian.PutUint64(buf[:], ref.Version)
		h.Write(buf[:])
		h.Write(ref.Digest[:])
	}
	if pt := t.Kind.Programmable; pt != nil {
		for _, cmd := range pt.Commands {
			h.Write([]byte{byte(cmd.Kind)})
			for _, arg := range cmd.Arguments {
				h.Write([]byte{byte(arg.Kind)})
				binary.BigEndian.PutUint16(buf[:2], arg.Index)
				h.Write(buf[:2])
				binary.BigEndian.PutUint16(buf[:2], arg.SubIndex)
				h.Write(buf[:2])
			}
		}
	}
	var digest types.Digest
	copy(digest[:], h.Sum(nil))
	return digest
}
