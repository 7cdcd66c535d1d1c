package gateway

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MetaRouterABI is the router entry point executed by the caller.
const MetaRouterABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "bytes", "name": "firstSwapCalldata", "type": "bytes"},
					{"internalType": "address", "name": "firstDexRouter", "type": "address"},
					{"internalType": "address[]", "name": "approvedTokens", "type": "address[]"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "bool", "name": "nativeIn", "type": "bool"},
					{"internalType": "address", "name": "relayRecipient", "type": "address"},
					{"internalType": "bytes", "name": "otherSideCalldata", "type": "bytes"}
				],
				"internalType": "struct MetaRouteStructs.MetaRouteTransaction",
				"name": "_metarouteTransaction",
				"type": "tuple"
			}
		],
		"name": "metaRoute",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// PortalABI locks real assets on their origin ledger and releases them.
const PortalABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "stableBridgingFee", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "rtoken", "type": "address"},
					{"internalType": "address", "name": "chain2address", "type": "address"},
					{"internalType": "address", "name": "receiveSide", "type": "address"},
					{"internalType": "uint256", "name": "chainID", "type": "uint256"},
					{"internalType": "address", "name": "revertableAddress", "type": "address"},
					{"internalType": "address[]", "name": "swapTokens", "type": "address[]"},
					{"internalType": "address", "name": "secondDexRouter", "type": "address"},
					{"internalType": "bytes", "name": "secondSwapCalldata", "type": "bytes"},
					{"internalType": "address", "name": "finalReceiveSide", "type": "address"},
					{"internalType": "bytes", "name": "finalCalldata", "type": "bytes"},
					{"internalType": "uint256", "name": "finalOffset", "type": "uint256"}
				],
				"internalType": "struct MetaRouteStructs.MetaSynthesizeTransaction",
				"name": "_metaSynthesizeTransaction",
				"type": "tuple"
			}
		],
		"name": "metaSynthesize",
		"outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "stableBridgingFee", "type": "uint256"},
					{"internalType": "bytes32", "name": "externalID", "type": "bytes32"},
					{"internalType": "address", "name": "to", "type": "address"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "rToken", "type": "address"},
					{"internalType": "address", "name": "finalReceiveSide", "type": "address"},
					{"internalType": "bytes", "name": "finalCalldata", "type": "bytes"},
					{"internalType": "uint256", "name": "finalOffset", "type": "uint256"}
				],
				"internalType": "struct MetaRouteStructs.MetaUnsynthesizeTransaction",
				"name": "_metaUnsynthesizeTransaction",
				"type": "tuple"
			}
		],
		"name": "metaUnsynthesize",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// SynthesisABI mints and burns synthetic representations.
const SynthesisABI = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "stableBridgingFee", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "bytes32", "name": "externalID", "type": "bytes32"},
					{"internalType": "address", "name": "tokenReal", "type": "address"},
					{"internalType": "uint256", "name": "chainID", "type": "uint256"},
					{"internalType": "address", "name": "to", "type": "address"},
					{"internalType": "address[]", "name": "swapTokens", "type": "address[]"},
					{"internalType": "address", "name": "secondDexRouter", "type": "address"},
					{"internalType": "bytes", "name": "secondSwapCalldata", "type": "bytes"},
					{"internalType": "address", "name": "finalReceiveSide", "type": "address"},
					{"internalType": "bytes", "name": "finalCalldata", "type": "bytes"},
					{"internalType": "uint256", "name": "finalOffset", "type": "uint256"}
				],
				"internalType": "struct MetaRouteStructs.MetaMintTransaction",
				"name": "_metaMintTransaction",
				"type": "tuple"
			}
		],
		"name": "metaMintSyntheticToken",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "stableBridgingFee", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "syntCaller", "type": "address"},
					{"internalType": "address", "name": "finalReceiveSide", "type": "address"},
					{"internalType": "address", "name": "sToken", "type": "address"},
					{"internalType": "bytes", "name": "finalCallData", "type": "bytes"},
					{"internalType": "uint256", "name": "finalOffset", "type": "uint256"},
					{"internalType": "address", "name": "chain2address", "type": "address"},
					{"internalType": "address", "name": "receiveSide", "type": "address"},
					{"internalType": "uint256", "name": "chainID", "type": "uint256"},
					{"internalType": "address", "name": "revertableAddress", "type": "address"}
				],
				"internalType": "struct MetaRouteStructs.MetaBurnTransaction",
				"name": "_metaBurnTransaction",
				"type": "tuple"
			}
		],
		"name": "metaBurnSyntheticToken",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// OmniPoolABI is the stable swap pool holding synthetics on the hub ledger.
const OmniPoolABI = `[
	{
		"inputs": [
			{"internalType": "uint8", "name": "tokenIndexFrom", "type": "uint8"},
			{"internalType": "uint8", "name": "tokenIndexTo", "type": "uint8"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"}
		],
		"name": "calculateSwap",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint8", "name": "tokenIndexFrom", "type": "uint8"},
			{"internalType": "uint8", "name": "tokenIndexTo", "type": "uint8"},
			{"internalType": "uint256", "name": "dx", "type": "uint256"},
			{"internalType": "uint256", "name": "minDy", "type": "uint256"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swap",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// WrappedNativeABI is the canonical WETH9 interface.
const WrappedNativeABI = `[
	{"inputs": [], "name": "deposit", "outputs": [], "stateMutability": "payable", "type": "function"},
	{
		"inputs": [{"internalType": "uint256", "name": "wad", "type": "uint256"}],
		"name": "withdraw",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// FeeCollectorABI is the relay that takes a flat fee and forwards a swap.
const FeeCollectorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "address", "name": "router", "type": "address"},
			{"internalType": "address", "name": "approvalTarget", "type": "address"},
			{"internalType": "bytes", "name": "swapCalldata", "type": "bytes"},
			{"internalType": "uint256", "name": "offset", "type": "uint256"}
		],
		"name": "onswap",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// MetaRouteTransaction is the metaRoute argument.
type MetaRouteTransaction struct {
	FirstSwapCalldata []byte
	FirstDexRouter    common.Address
	ApprovedTokens    []common.Address
	Amount            *big.Int
	NativeIn          bool
	RelayRecipient    common.Address
	OtherSideCalldata []byte
}

// MetaSynthesizeTransaction locks a real asset and mints on ChainID.
type MetaSynthesizeTransaction struct {
	StableBridgingFee  *big.Int
	Amount             *big.Int
	Rtoken             common.Address
	Chain2address      common.Address
	ReceiveSide        common.Address
	ChainID            *big.Int
	RevertableAddress  common.Address
	SwapTokens         []common.Address
	SecondDexRouter    common.Address
	SecondSwapCalldata []byte
	FinalReceiveSide   common.Address
	FinalCalldata      []byte
	FinalOffset        *big.Int
}

// MetaMintTransaction is what the relayer executes after a metaSynthesize.
type MetaMintTransaction struct {
	StableBridgingFee  *big.Int
	Amount             *big.Int
	ExternalID         [32]byte
	TokenReal          common.Address
	ChainID            *big.Int
	To                 common.Address
	SwapTokens         []common.Address
	SecondDexRouter    common.Address
	SecondSwapCalldata []byte
	FinalReceiveSide   common.Address
	FinalCalldata      []byte
	FinalOffset        *big.Int
}

// MetaBurnTransaction burns a synthetic and releases its real asset on ChainID.
type MetaBurnTransaction struct {
	StableBridgingFee *big.Int
	Amount            *big.Int
	SyntCaller        common.Address
	FinalReceiveSide  common.Address
	SToken            common.Address
	FinalCallData     []byte
	FinalOffset       *big.Int
	Chain2address     common.Address
	ReceiveSide       common.Address
	ChainID           *big.Int
	RevertableAddress common.Address
}

// MetaUnsynthesizeTransaction is what the relayer executes after a burn.
type MetaUnsynthesizeTransaction struct {
	StableBridgingFee *big.Int
	ExternalID        [32]byte
	To                common.Address
	Amount            *big.Int
	RToken            common.Address
	FinalReceiveSide  common.Address
	FinalCalldata     []byte
	FinalOffset       *big.Int
}
