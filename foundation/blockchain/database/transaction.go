package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/nexuschain/chaincore/foundation/blockchain/signature"
)

// Transaction is the unit of work submitted to a chain. The script is
// executed by the runtime on behalf of the sender.
type Transaction struct {
	Nexus      string   `json:"nexus"`      // Name of the network the transaction belongs to.
	Chain      string   `json:"chain"`      // Name of the chain that must execute the script.
	Script     []byte   `json:"script"`     // Encoded script executed by the runtime.
	Sender     Address  `json:"sender"`     // Account that submitted the transaction.
	Expiration uint64   `json:"expiration"` // Unix seconds after which the transaction is rejected.
	Payload    []byte   `json:"payload"`    // Free form data attached by the sender.
	Signatures [][]byte `json:"signatures"` // Signatures over the unsigned content in [R|S|V] format.
}

// unsigned is the portion of the transaction that is hashed and signed.
type unsigned struct {
	Nexus      string  `json:"nexus"`
	Chain      string  `json:"chain"`
	Script     []byte  `json:"script"`
	Sender     Address `json:"sender"`
	Expiration uint64  `json:"expiration"`
	Payload    []byte  `json:"payload"`
}

// NewTransaction constructs an unsigned transaction.
func NewTransaction(nexus string, chain string, script []byte, sender Address, expiration uint64, payload []byte) Transaction {
	return Transaction{
		Nexus:      nexus,
		Chain:      chain,
		Script:     script,
		Sender:     sender,
		Expiration: expiration,
		Payload:    payload,
	}
}

// Hash returns the unique hash for the transaction. Signatures are not part
// of the hash so adding one does not change the identity of the transaction.
func (tx Transaction) Hash() Hash {
	return Hash(signature.Hash(tx.unsigned()))
}

// Sign uses the specified private key to add a signature to the transaction.
func (tx *Transaction) Sign(privateKey *ecdsa.PrivateKey) error {
	sig, err := signature.Sign(tx.unsigned(), privateKey)
	if err != nil {
		return fmt.Errorf("signing transaction: %w", err)
	}

	tx.Signatures = append(tx.Signatures, sig)
	return nil
}

// Signers returns the addresses recovered from every signature.
func (tx Transaction) Signers() ([]Address, error) {
	signers := make([]Address, 0, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		addr, err := signature.FromAddress(tx.unsigned(), sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		signers = append(signers, FromCommon(addr))
	}

	return signers, nil
}

// IsSignedBy reports if one of the signatures was produced by the address.
func (tx Transaction) IsSignedBy(addr Address) bool {
	if !addr.IsUser() {
		return false
	}

	signers, err := tx.Signers()
	if err != nil {
		return false
	}

	for _, s := range signers {
		if s == addr {
			return true
		}
	}

	return false
}

// Validate checks the transaction is well formed for the named chain at the
// specified time.
func (tx Transaction) Validate(nexus string, chain string, now uint64) error {
	if tx.Nexus != nexus {
		return fmt.Errorf("%w: got %q, exp %q", ErrWrongNexus, tx.Nexus, nexus)
	}

	if tx.Chain != chain {
		return fmt.Errorf("%w: got %q, exp %q", ErrWrongChain, tx.Chain, chain)
	}

	if tx.Expiration < now {
		return fmt.Errorf("%w: expired at %d, now %d", ErrExpired, tx.Expiration, now)
	}

	if len(tx.Script) == 0 {
		return ErrEmptyScript
	}

	return nil
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%s", tx.Sender, tx.Hash())
}

func (tx Transaction) unsigned() unsigned {
	return unsigned{
		Nexus:      tx.Nexus,
		Chain:      tx.Chain,
		Script:     tx.Script,
		Sender:     tx.Sender,
		Expiration: tx.Expiration,
		Payload:    tx.Payload,
	}
}

// =============================================================================

// Set of error variables for transaction validation.
var (
	ErrWrongNexus  = errors.New("transaction for a different nexus")
	ErrWrongChain  = errors.New("transaction for a different chain")
	ErrExpired     = errors.New("transaction expired")
	ErrEmptyScript = errors.New("transaction script is empty")
)
