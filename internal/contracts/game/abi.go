package game

// QuestGameABI is the input ABI used to generate the binding from.
const QuestGameABI = `[
  {
    "type": "function",
    "name": "createCharacter",
    "inputs": [{"name": "name", "type": "string"}],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "requestAdventure",
    "inputs": [
      {"name": "tokenId", "type": "uint256"},
      {"name": "action", "type": "string"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "approve",
    "inputs": [
      {"name": "to", "type": "address"},
      {"name": "tokenId", "type": "uint256"}
    ],
    "outputs": [],
    "stateMutability": "nonpayable"
  },
  {
    "type": "function",
    "name": "characters",
    "inputs": [{"name": "", "type": "uint256"}],
    "outputs": [
      {"name": "name", "type": "string"},
      {"name": "xp", "type": "uint256"},
      {"name": "story", "type": "string"},
      {"name": "imageURI", "type": "string"}
    ],
    "stateMutability": "view"
  },
  {
    "type": "function",
    "name": "getHeroes",
    "inputs": [{"name": "owner", "type": "address"}],
    "outputs": [{"name": "", "type": "uint256[]"}],
    "stateMutability": "view"
  },
  {
    "type": "event",
    "name": "NewHeroRequested",
    "inputs": [
      {"name": "tokenId", "type": "uint256", "indexed": true},
      {"name": "owner", "type": "address", "indexed": true},
      {"name": "name", "type": "string", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "AdventureRequested",
    "inputs": [
      {"name": "tokenId", "type": "uint256", "indexed": true},
      {"name": "action", "type": "string", "indexed": false}
    ],
    "anonymous": false
  },
  {
    "type": "event",
    "name": "AdventureResolved",
    "inputs": [
      {"name": "tokenId", "type": "uint256", "indexed": true},
      {"name": "outcome", "type": "string", "indexed": false},
      {"name": "xpGained", "type": "uint256", "indexed": false},
      {"name": "imageURI", "type": "string", "indexed": false}
    ],
    "anonymous": false
  }
]`
