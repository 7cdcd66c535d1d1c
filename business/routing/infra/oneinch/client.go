package oneinch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/httpclient"
)

// Client is the subset of the 1inch swap API used for quoting.
type Client struct {
	http    httpclient.Client
	version string
}

// NewClient binds the API version, e.g. "v6.0".
func NewClient(http httpclient.Client, version string) *Client {
	if version == "" {
		version = "v6.0"
	}
	return &Client{http: http, version: version}
}

// SwapRequest holds the swap endpoint's query parameters.
type SwapRequest struct {
	ChainID  uint64
	Src      string
	Dst      string
	Amount   string
	From     string
	Receiver string
	Slippage string
}

// SwapResponse is the swap endpoint's answer.
type SwapResponse struct {
	DstAmount string `json:"dstAmount"`
	Tx        TxData `json:"tx"`
}

// TxData is the router call to execute.
type TxData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      int64  `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type spenderResponse struct {
	Address string `json:"address"`
}

// apiError is the body of a rejected request.
type apiError struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	StatusCode  int    `json:"statusCode"`
}

// Swap calls /swap/{version}/{chainId}/swap.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	var out SwapResponse
	_, err := c.http.NewRequest().
		SetQueryParam("src", req.Src).
		SetQueryParam("dst", req.Dst).
		SetQueryParam("amount", req.Amount).
		SetQueryParam("from", req.From).
		SetQueryParam("origin", req.From).
		SetQueryParam("receiver", req.Receiver).
		SetQueryParam("slippage", req.Slippage).
		SetQueryParam("disableEstimate", "true").
		SetQueryParam("allowPartialFill", "false").
		SetQueryParam("compatibility", "true").
		SetResult(&out).
		Get(ctx, fmt.Sprintf("/swap/%s/%s/swap", c.version, itoa(req.ChainID)))
	if err != nil {
		return nil, wrapError("swap", err)
	}
	return &out, nil
}

// Spender returns the router the caller must approve.
func (c *Client) Spender(ctx context.Context, chainID uint64) (common.Address, error) {
	var out spenderResponse
	_, err := c.http.NewRequest().
		SetResult(&out).
		Get(ctx, fmt.Sprintf("/swap/%s/%s/approve/spender", c.version, itoa(chainID)))
	if err != nil {
		return common.Address{}, wrapError("approve spender", err)
	}
	if !common.IsHexAddress(out.Address) {
		return common.Address{}, fmt.Errorf("1inch spender: invalid address %q", out.Address)
	}
	return common.HexToAddress(out.Address), nil
}

// wrapError classifies the API's error text. The description is matched
// rather than the status since 1inch answers 400 for most failures.
func wrapError(op string, err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("1inch %s: %w", op, err)
	}
	var body apiError
	text := se.Body
	if json.Unmarshal([]byte(se.Body), &body) == nil && body.Description != "" {
		text = body.Description
	}
	code := apperror.ClassifyProvider(fmt.Errorf("status %d: %s", se.StatusCode, text))
	return apperror.New(code,
		apperror.WithContext(fmt.Sprintf("1inch %s: %s", op, text)),
		apperror.WithCause(err))
}
