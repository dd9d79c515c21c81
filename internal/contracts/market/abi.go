package market

// HeroMarketABI is the input ABI used to generate the binding from.
const HeroMarketABI = `[
  {
    "type": "function",
    "name": "listHero",
    "inputs": [
      {"name": "tokenId", "type": "uint256"},
      {"name": "price", "type": "uint256"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "buyHero",
    "inputs": [{"name": "tokenId", "type": "uint256"}],
    "outputs": [],
    "stateMutability": "payable"
  },
  {
    "type": "function",
    "name": "listings",
    "inputs": [{"name": "", "type": "uint256"}],
    "outputs": [
      {"name": "seller", "type": "address"},
      {"name": "price", "type": "uint256"},
      {"name": "active", "type": "bool"}
    ],
    "stateMutability": "view"
  },
  {
    "type": "event",
    "name": "HeroListed",
    "inputs": [
      {"name": "tokenId", "type": "uint256", "indexed": true},
      {"name": "seller", "type": "address", "indexed": false},
      {"name": "price", "type": "uint256", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "HeroSold",
    "inputs": [
      {"name": "tokenId", "type": "uint256", "indexed": true},
      {"name": "buyer", "type": "address", "indexed": false},
      {"name": "price", "type": "uint256", "indexed": false}
    ],
    "anonymous": false
  }
]`
