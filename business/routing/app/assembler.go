package app

import (
	"bytes"
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/ledgeraddr"
)

// AssembleInput is everything needed to shape the caller's transaction.
type AssembleInput struct {
	Ledger   *domain.Ledger
	From     string
	AmountIn asset.Amount
	// Call is required for EVM and Tron ledgers, Deposit for UTXO ledgers.
	Call    domain.Call
	Deposit *domain.Deposit
}

// Assemble turns a contract call (or deposit instruction) into the payload
// of the input ledger's family.
func Assemble(in AssembleInput) (domain.Payload, error) {
	switch in.Ledger.Family {
	case asset.FamilyTron:
		return assembleTron(in)
	case asset.FamilyUTXO:
		return assembleUTXO(in)
	default:
		return assembleEVM(in)
	}
}

func assembleEVM(in AssembleInput) (domain.Payload, error) {
	from, err := ledgeraddr.Parse(asset.FamilyEVM, in.From)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, err.Error())
	}
	return domain.EVMPayload{
		ChainID: in.Ledger.ChainID,
		From:    from,
		To:      in.Call.Target,
		Value:   in.Call.CallValue(),
		Data:    bytes.Clone(in.Call.Data),
	}, nil
}

func assembleTron(in AssembleInput) (domain.Payload, error) {
	owner, err := ledgeraddr.DecodeTron(in.From)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, err.Error())
	}
	if in.Call.Signature == "" {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithContext("tron call without method signature"))
	}

	// Tron selects the method from the signature, so the selector is derived
	// from it and must agree with the calldata.
	selector := crypto.Keccak256([]byte(in.Call.Signature))[:4]
	if len(in.Call.Data) < 4 || !bytes.Equal(in.Call.Data[:4], selector) {
		return nil, apperror.New(apperror.CodeInvalidState,
			apperror.WithContext("calldata does not match "+in.Call.Signature))
	}

	value := in.Call.CallValue()
	if !value.IsInt64() {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "call value overflows tron amount")
	}

	return domain.TronPayload{
		ChainID:           in.Ledger.ChainID,
		OwnerAddress:      ledgeraddr.EncodeTron(owner),
		ContractAddress:   ledgeraddr.EncodeTron(in.Call.Target),
		FunctionSignature: in.Call.Signature,
		FunctionSelector:  hex.EncodeToString(selector),
		Parameter:         hex.EncodeToString(in.Call.Data[4:]),
		CallValue:         value.Int64(),
	}, nil
}

func assembleUTXO(in AssembleInput) (domain.Payload, error) {
	if in.Deposit == nil {
		return nil, apperror.New(apperror.CodeNoRoute, apperror.WithContext("utxo ledgers need a deposit address"))
	}
	script, err := ledgeraddr.UTXOScript(in.Deposit.Address)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidState, apperror.WithCause(err))
	}
	return domain.UTXOPayload{
		ChainID:        in.Ledger.ChainID,
		DepositAddress: in.Deposit.Address,
		Script:         script,
		Amount:         in.AmountIn,
		Memo:           in.Deposit.Memo,
		ValidUntil:     in.Deposit.ValidUntil,
	}, nil
}
