// Package ledgeraddr converts participant addresses between the textual
// forms of each ledger family and the 20-byte form used internally.
package ledgeraddr

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/asset"
)

// TronPrefix is the version byte of Tron mainnet addresses.
const TronPrefix byte = 0x41

var (
	ErrInvalidAddress = errors.New("ledgeraddr: invalid address")
	ErrWrongNetwork   = errors.New("ledgeraddr: address belongs to another network")
)

// EncodeTron renders a 20-byte address in Tron base58check form (T...).
func EncodeTron(addr common.Address) string {
	return base58.CheckEncode(addr.Bytes(), TronPrefix)
}

// TronHex renders the 21-byte hex form ("41" + address) Tron nodes accept.
func TronHex(addr common.Address) string {
	return hex.EncodeToString(append([]byte{TronPrefix}, addr.Bytes()...))
}

// DecodeTron accepts base58check, 41-prefixed hex and 0x hex forms.
func DecodeTron(s string) (common.Address, error) {
	switch {
	case strings.HasPrefix(s, "T"):
		payload, version, err := base58.CheckDecode(s)
		if err != nil {
			return common.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
		}
		if version != TronPrefix || len(payload) != common.AddressLength {
			return common.Address{}, fmt.Errorf("%w: %q", ErrWrongNetwork, s)
		}
		return common.BytesToAddress(payload), nil
	case len(s) == 42 && strings.HasPrefix(s, "41"):
		raw, err := hex.DecodeString(s)
		if err != nil {
			return common.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
		}
		return common.BytesToAddress(raw[1:]), nil
	case common.IsHexAddress(s):
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
}

// DecodeUTXO validates a Bitcoin mainnet address.
func DecodeUTXO(s string) (btcutil.Address, error) {
	addr, err := btcutil.DecodeAddress(s, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if !addr.IsForNet(&chaincfg.MainNetParams) {
		return nil, fmt.Errorf("%w: %q", ErrWrongNetwork, s)
	}
	return addr, nil
}

// UTXOScript returns the hex scriptPubKey paying to a Bitcoin address.
func UTXOScript(s string) (string, error) {
	addr, err := DecodeUTXO(s)
	if err != nil {
		return "", err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return hex.EncodeToString(script), nil
}

// Parse converts a participant address of the given family to 20 bytes.
// UTXO participants have no 20-byte form; they are validated and the zero
// address is returned.
func Parse(family asset.Family, s string) (common.Address, error) {
	switch family {
	case asset.FamilyTron:
		return DecodeTron(s)
	case asset.FamilyUTXO:
		_, err := DecodeUTXO(s)
		return common.Address{}, err
	default:
		if !common.IsHexAddress(s) {
			return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		return common.HexToAddress(s), nil
	}
}

// Format renders a 20-byte address in the family's textual form.
func Format(family asset.Family, addr common.Address) string {
	if family == asset.FamilyTron {
		return EncodeTron(addr)
	}
	return addr.Hex()
}
