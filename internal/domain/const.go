package domain

import "github.com/ethereum/go-ethereum/common"

const (
	// Gateway constants
	DEFAULT_IPFS_GATEWAY    = "https://ipfs.io/ipfs/"
	DEFAULT_ARWEAVE_GATEWAY = "https://arweave.net/"

	// DEFAULT_CHAIN_ID is the chain id every crawled record is keyed under
	DEFAULT_CHAIN_ID = "1"

	// DEFAULT_GENESIS_BLOCK is where a follower with an empty store starts
	DEFAULT_GENESIS_BLOCK uint64 = 15000000

	// DEFAULT_MAX_SPAN is the widest block range a single replication request may cover
	DEFAULT_MAX_SPAN uint64 = 5000

	// TRACK_SCHEMA_VERSION is stamped on every extracted track
	TRACK_SCHEMA_VERSION = "1.0.0"

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
)

// TransferEventSignature is keccak256("Transfer(address,address,uint256)")
var TransferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
