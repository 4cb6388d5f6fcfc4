package ledger

// ledgerABI covers the entry points the engine consumes: balance and
// authorization queries, output estimation and the bot-authorized swap.
// Owner-signed entry points (deposit, withdraw, setBotAuthorization) are
// intentionally absent; the engine never calls them.
const ledgerABI = `[
	{
		"name": "balances",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "user", "type": "address"},
			{"name": "token", "type": "address"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "isBotAuthorized",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "user", "type": "address"},
			{"name": "bot", "type": "address"}
		],
		"outputs": [{"name": "", "type": "bool"}]
	},
	{
		"name": "getAmountOut",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "amountIn", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "swapForUser",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "user", "type": "address"},
			{"name": "tokenIn", "type": "address"},
			{"name": "tokenOut", "type": "address"},
			{"name": "amountIn", "type": "uint256"},
			{"name": "minAmountOut", "type": "uint256"}
		],
		"outputs": [{"name": "amountOut", "type": "uint256"}]
	},
	{
		"name": "SwapExecuted",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"name": "user", "type": "address", "indexed": true},
			{"name": "tokenIn", "type": "address", "indexed": false},
			{"name": "tokenOut", "type": "address", "indexed": false},
			{"name": "amountIn", "type": "uint256", "indexed": false},
			{"name": "amountOut", "type": "uint256", "indexed": false}
		]
	}
]`
