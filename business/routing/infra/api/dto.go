package api

import (
	"encoding/hex"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	chaindomain "github.com/fd1az/omniroute/business/blockchain/domain"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/asset"
)

// quoteRequest carries amounts in the input asset's smallest unit. Assets
// are registry references ("1:USDC" or "chain:1/0x...").
type quoteRequest struct {
	AmountIn    string  `json:"amountIn"`
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	RevertTo    string  `json:"revertTo,omitempty"`
	SlippageBps *uint32 `json:"slippageBps,omitempty"`
	// Deadline is a unix timestamp in seconds.
	Deadline int64 `json:"deadline,omitempty"`
}

type amountDTO struct {
	Asset    string `json:"asset"`
	Symbol   string `json:"symbol"`
	Raw      string `json:"raw"`
	Decimals uint8  `json:"decimals"`
	Display  string `json:"display"`
}

type feeDTO struct {
	Provider string    `json:"provider"`
	Kind     string    `json:"kind"`
	Amount   amountDTO `json:"amount"`
}

type payloadDTO struct {
	Family string `json:"family"`

	ChainID uint64 `json:"chainId"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Value   string `json:"value,omitempty"`
	Data    string `json:"data,omitempty"`

	OwnerAddress      string `json:"ownerAddress,omitempty"`
	ContractAddress   string `json:"contractAddress,omitempty"`
	FunctionSignature string `json:"functionSignature,omitempty"`
	FunctionSelector  string `json:"functionSelector,omitempty"`
	Parameter         string `json:"parameter,omitempty"`
	CallValue         int64  `json:"callValue,omitempty"`

	DepositAddress string     `json:"depositAddress,omitempty"`
	Script         string     `json:"script,omitempty"`
	Amount         *amountDTO `json:"amount,omitempty"`
	Memo           string     `json:"memo,omitempty"`
	ValidUntil     int64      `json:"validUntil,omitempty"`
}

type quoteResponse struct {
	Kind                string     `json:"kind"`
	Strategy            string     `json:"strategy"`
	Provider            string     `json:"provider"`
	Route               []string   `json:"route"`
	AmountIn            amountDTO  `json:"amountIn"`
	AmountOut           amountDTO  `json:"amountOut"`
	AmountOutMin        amountDTO  `json:"amountOutMin"`
	AmountOutWithoutFee *amountDTO `json:"amountOutWithoutFee,omitempty"`
	PriceImpact         string     `json:"priceImpact"`
	Fees                []feeDTO   `json:"fees"`
	ApprovalTarget      string     `json:"approvalTarget,omitempty"`
	Payload             payloadDTO `json:"payload"`
	Deadline            int64      `json:"deadline"`
	AmountInUSD         string     `json:"amountInUsd,omitempty"`
	AmountOutUSD        string     `json:"amountOutUsd,omitempty"`
	NetworkFee          *amountDTO `json:"networkFee,omitempty"`
}

type transactionRequest struct {
	ChainID uint64 `json:"chainId"`
	// RawTransaction is the signed transaction in 0x-prefixed binary form.
	RawTransaction string `json:"rawTransaction"`
	// Wait blocks until the configured confirmation depth.
	Wait bool `json:"wait"`
}

type confirmationDTO struct {
	BlockNumber   uint64 `json:"blockNumber"`
	Confirmations uint64 `json:"confirmations"`
	GasUsed       uint64 `json:"gasUsed"`
	Status        string `json:"status"`
}

type transactionResponse struct {
	ChainID      uint64           `json:"chainId"`
	TxHash       string           `json:"txHash"`
	Confirmation *confirmationDTO `json:"confirmation,omitempty"`
}

type completionRequest struct {
	ChainID    uint64 `json:"chainId"`
	ExternalID string `json:"externalId"`
}

type completionResponse struct {
	ChainID     uint64 `json:"chainId"`
	ExternalID  string `json:"externalId"`
	Status      string `json:"status"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Recipient   string `json:"recipient"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	BridgingFee string `json:"bridgingFee"`
}

func toAmountDTO(a asset.Amount) amountDTO {
	return amountDTO{
		Asset:    a.Asset().ID().String(),
		Symbol:   a.Asset().Symbol(),
		Raw:      a.Raw().String(),
		Decimals: a.Asset().Decimals(),
		Display:  a.ToDecimal().String(),
	}
}

func optionalAmount(a asset.Amount) *amountDTO {
	if !a.IsSet() {
		return nil
	}
	dto := toAmountDTO(a)
	return &dto
}

func toQuoteResponse(res *domain.QuoteResult) quoteResponse {
	route := make([]string, len(res.Route))
	for i, a := range res.Route {
		route[i] = a.ID().String()
	}
	fees := make([]feeDTO, len(res.Fees))
	for i, f := range res.Fees {
		fees[i] = feeDTO{Provider: f.Provider, Kind: string(f.Kind), Amount: toAmountDTO(f.Amount)}
	}

	out := quoteResponse{
		Kind:                string(res.Kind),
		Strategy:            string(res.Strategy),
		Provider:            res.Provider,
		Route:               route,
		AmountIn:            toAmountDTO(res.AmountIn),
		AmountOut:           toAmountDTO(res.AmountOut),
		AmountOutMin:        toAmountDTO(res.AmountOutMin),
		AmountOutWithoutFee: optionalAmount(res.AmountOutWithoutFee),
		PriceImpact:         res.PriceImpact.Percent().String(),
		Fees:                fees,
		Payload:             toPayloadDTO(res.Payload),
		Deadline:            res.Deadline.Unix(),
		NetworkFee:          optionalAmount(res.NetworkFee),
	}
	if res.NeedsApproval() {
		out.ApprovalTarget = res.ApprovalTarget.Hex()
	}
	if !res.AmountInUSD.IsZero() {
		out.AmountInUSD = res.AmountInUSD.StringFixed(2)
	}
	if !res.AmountOutUSD.IsZero() {
		out.AmountOutUSD = res.AmountOutUSD.StringFixed(2)
	}
	return out
}

func toPayloadDTO(p domain.Payload) payloadDTO {
	switch p := p.(type) {
	case domain.EVMPayload:
		dto := payloadDTO{
			Family:  string(p.Family()),
			ChainID: p.ChainID,
			From:    p.From.Hex(),
			To:      p.To.Hex(),
			Value:   "0",
			Data:    hexutil.Encode(p.Data),
		}
		if p.Value != nil {
			dto.Value = p.Value.String()
		}
		return dto
	case domain.TronPayload:
		return payloadDTO{
			Family:            string(p.Family()),
			ChainID:           p.ChainID,
			OwnerAddress:      p.OwnerAddress,
			ContractAddress:   p.ContractAddress,
			FunctionSignature: p.FunctionSignature,
			FunctionSelector:  p.FunctionSelector,
			Parameter:         p.Parameter,
			CallValue:         p.CallValue,
		}
	case domain.UTXOPayload:
		return payloadDTO{
			Family:         string(p.Family()),
			ChainID:        p.ChainID,
			DepositAddress: p.DepositAddress,
			Script:         p.Script,
			Amount:         optionalAmount(p.Amount),
			Memo:           p.Memo,
			ValidUntil:     validUntil(p.ValidUntil),
		}
	}
	return payloadDTO{}
}

func validUntil(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func toConfirmationDTO(c *chaindomain.Confirmation) *confirmationDTO {
	if c == nil {
		return nil
	}
	return &confirmationDTO{
		BlockNumber:   c.BlockNumber,
		Confirmations: c.Confirmations,
		GasUsed:       c.GasUsed,
		Status:        string(c.Status),
	}
}

func toCompletionResponse(c *chaindomain.Completion) completionResponse {
	return completionResponse{
		ChainID:     c.ChainID,
		ExternalID:  c.ExternalID.Hex(),
		Status:      string(c.Status),
		TxHash:      c.TxHash.Hex(),
		BlockNumber: c.BlockNumber,
		Recipient:   c.Recipient.Hex(),
		Token:       c.Token.Hex(),
		Amount:      bigString(c.Amount),
		BridgingFee: bigString(c.BridgingFee),
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	return hex.DecodeString(s)
}
