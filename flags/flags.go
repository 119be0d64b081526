package flags

const (
	Home  = "home"
	Trace = "trace"

	Log_Level = "log.level"

	RPC_URL       = "rpc.url"
	RPC_Timeout   = "rpc.timeout"
	RPC_ReadLimit = "rpc.readlimit"

	Storage_PageSize     = "storage.pagesize"
	Storage_RuntimeCache = "storage.runtimecache"

	Tx_Mortality = "tx.mortality"
)
