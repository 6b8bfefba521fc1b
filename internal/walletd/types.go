package walletd

import "encoding/json"

// RPC method names understood by the daemon.
const (
	MethodCreateAddress = "createAddress"
	MethodGetSpendKeys  = "getSpendKeys"
	MethodGetBalance    = "getBalance"
	MethodGetAddresses  = "getAddresses"
	MethodDeleteAddress = "deleteAddress"
)

// Balance is the daemon's view of one address, in atomic units.
type Balance struct {
	AvailableBalance uint64 `json:"availableBalance"`
	LockedAmount     uint64 `json:"lockedAmount"`
}

type rpcRequest struct {
	JSONRPC  string `json:"jsonrpc"`
	ID       uint64 `json:"id"`
	Method   string `json:"method"`
	Password string `json:"password,omitempty"`
	Params   any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an application-level error reported by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type addressParams struct {
	Address string `json:"address"`
}

type createAddressResult struct {
	Address string `json:"address"`
}

type spendKeysResult struct {
	SpendPublicKey string `json:"spendPublicKey"`
	SpendSecretKey string `json:"spendSecretKey"`
}

type getAddressesResult struct {
	Addresses []string `json:"addresses"`
}
