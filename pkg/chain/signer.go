package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/nspcc-dev/evmdeploy/pkg/config"
)

// PasswordFunc returns the password for the keystore file at path.
type PasswordFunc func(path string) (string, error)

// Signer signs transactions with a single account key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner creates a signer from the account credential as it's specified
// in the network profile: either a hex-encoded private key (with or without
// 0x prefix) or a keystore:<path> reference. Password is only requested for
// keystore files.
func NewSigner(credential string, password PasswordFunc) (*Signer, error) {
	if path, ok := strings.CutPrefix(credential, config.KeystorePrefix); ok {
		return signerFromKeystore(path, password)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(credential, "0x"))
	if err != nil {
		// Don't print the key itself.
		return nil, fmt.Errorf("%w: invalid account private key", config.ErrConfiguration)
	}
	return NewSignerFromKey(key), nil
}

// NewSignerFromKey creates a signer for the given key.
func NewSignerFromKey(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func signerFromKeystore(path string, password PasswordFunc) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: can't read keystore: %v", config.ErrConfiguration, err)
	}
	if password == nil {
		return nil, fmt.Errorf("%w: no password for keystore %s", config.ErrConfiguration, path)
	}
	pass, err := password(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get password for %s: %v", config.ErrConfiguration, path, err)
	}
	key, err := keystore.DecryptKey(data, pass)
	if err != nil {
		return nil, fmt.Errorf("%w: can't decrypt keystore %s: %v", config.ErrConfiguration, path, err)
	}
	return NewSignerFromKey(key.PrivateKey), nil
}

// Address returns the account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx signs tx for the given chain.
func (s *Signer) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
