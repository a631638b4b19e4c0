package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// TransactionsEndpoint is the endpoint for submitting a transaction
	TransactionsEndpoint = "/transactions"
	// TransactionEndpoint is the endpoint to get a transaction status
	TxHashURLParam      = "txHash"
	TransactionEndpoint = "/transactions/{" + TxHashURLParam + "}"
	// PoolEndpoint is the endpoint to get the pool state summary
	PoolEndpoint = "/pool"
	// PoolRootEndpoint is the endpoint to check whether a root is within the
	// spendable history window
	RootURLParam     = "root"
	PoolRootEndpoint = "/pool/root/{" + RootURLParam + "}"
	// DepositsEndpoint is the endpoint for submitting a confirmed bridged
	// deposit
	DepositsEndpoint = "/deposits"
)
