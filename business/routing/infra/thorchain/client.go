package thorchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/httpclient"
)

// Client talks to a THORNode REST endpoint.
type Client struct {
	http httpclient.Client
}

func NewClient(http httpclient.Client) *Client {
	return &Client{http: http}
}

// QuoteSwapRequest holds /thorchain/quote/swap query parameters. Amount is
// in THORChain's 1e8 units.
type QuoteSwapRequest struct {
	FromAsset     string
	ToAsset       string
	Amount        string
	Destination   string
	RefundAddress string
	ToleranceBps  uint32
}

// QuoteSwapResponse is the subset of the quote we use.
type QuoteSwapResponse struct {
	InboundAddress         string    `json:"inbound_address"`
	Router                 string    `json:"router"`
	Expiry                 int64     `json:"expiry"`
	Memo                   string    `json:"memo"`
	ExpectedAmountOut      string    `json:"expected_amount_out"`
	RecommendedMinAmountIn string    `json:"recommended_min_amount_in"`
	DustThreshold          string    `json:"dust_threshold"`
	Warning                string    `json:"warning"`
	Fees                   QuoteFees `json:"fees"`
	TotalSwapSeconds       int64     `json:"total_swap_seconds"`
}

// QuoteFees are denominated in Asset, in 1e8 units.
type QuoteFees struct {
	Asset       string `json:"asset"`
	Affiliate   string `json:"affiliate"`
	Outbound    string `json:"outbound"`
	Liquidity   string `json:"liquidity"`
	Total       string `json:"total"`
	SlippageBps int64  `json:"slippage_bps"`
	TotalBps    int64  `json:"total_bps"`
}

// apiError is how THORNode rejects a quote, e.g.
// {"code":3,"message":"failed to simulate swap: ...","details":[]}.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// QuoteSwap calls /thorchain/quote/swap.
func (c *Client) QuoteSwap(ctx context.Context, req QuoteSwapRequest) (*QuoteSwapResponse, error) {
	r := c.http.NewRequest().
		SetQueryParam("from_asset", req.FromAsset).
		SetQueryParam("to_asset", req.ToAsset).
		SetQueryParam("amount", req.Amount).
		SetQueryParam("destination", req.Destination)
	if req.RefundAddress != "" {
		r = r.SetQueryParam("refund_address", req.RefundAddress)
	}
	if req.ToleranceBps > 0 {
		r = r.SetQueryParam("tolerance_bps", strconv.FormatUint(uint64(req.ToleranceBps), 10))
	}

	var out QuoteSwapResponse
	if _, err := r.SetResult(&out).Get(ctx, "/thorchain/quote/swap"); err != nil {
		return nil, wrapError(err)
	}
	return &out, nil
}

func wrapError(err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return fmt.Errorf("thorchain quote: %w", err)
	}
	text := se.Body
	var body apiError
	if json.Unmarshal([]byte(se.Body), &body) == nil {
		switch {
		case body.Message != "":
			text = body.Message
		case body.Error != "":
			text = body.Error
		}
	}
	code := apperror.ClassifyProvider(fmt.Errorf("status %d: %s", se.StatusCode, text))
	return apperror.New(code,
		apperror.WithContext("thorchain: "+text),
		apperror.WithCause(err))
}
