package config

// AppConfig is populated from the environment at startup and read-only
// afterwards. Satoshi-denominated limits are strings so operators can use
// underscore separators (e.g. "100_000_000").
type AppConfig struct {
	LNDAddress      string `envconfig:"LND_ADDRESS"`
	LNDCertFile     string `envconfig:"LND_CERT_FILE"`
	LNDMacaroonFile string `envconfig:"LND_MACAROON_FILE"`
	Workdir         string `envconfig:"WORK_DIR"`
	Port            string `envconfig:"PORT" default:"1610"`
	DatabaseUri     string `envconfig:"DATABASE_URI" default:"lspd.db"`
	LogDBQueries    bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile       bool   `envconfig:"LOG_TO_FILE" default:"true"`

	LSPS1Enabled bool   `envconfig:"LSPS1_ENABLED" default:"true"`
	Website      string `envconfig:"WEBSITE"`
	// Secret for the operator API bearer tokens. Empty leaves the API open.
	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET"`

	MinInitialClientBalanceSat string `envconfig:"MIN_INITIAL_CLIENT_BALANCE_SAT" default:"0"`
	MaxInitialClientBalanceSat string `envconfig:"MAX_INITIAL_CLIENT_BALANCE_SAT" default:"100_000"`
	MinInitialLspBalanceSat    string `envconfig:"MIN_INITIAL_LSP_BALANCE_SAT" default:"10_000"`
	MaxInitialLspBalanceSat    string `envconfig:"MAX_INITIAL_LSP_BALANCE_SAT" default:"100_000_000"`
	MinChannelBalanceSat       string `envconfig:"MIN_CHANNEL_BALANCE_SAT" default:"10_000"`
	MaxChannelBalanceSat       string `envconfig:"MAX_CHANNEL_BALANCE_SAT" default:"100_000_000"`

	MaxChannelExpiryBlocks       uint32 `envconfig:"MAX_CHANNEL_EXPIRY_BLOCKS" default:"51260"`
	MinimumChannelConfirmations  uint32 `envconfig:"MINIMUM_CHANNEL_CONFIRMATIONS" default:"6"`
	SupportsZeroChannelReserve   bool   `envconfig:"SUPPORTS_ZERO_CHANNEL_RESERVE" default:"false"`
	OrderLifetimeSeconds         uint64 `envconfig:"ORDER_LIFETIME_SECONDS" default:"21600"`
	ChannelOpenTimeoutSeconds    uint64 `envconfig:"CHANNEL_OPEN_TIMEOUT_SECONDS" default:"600"`
	FeeComputationBaseFeeSat     string `envconfig:"FEE_COMPUTATION_BASE_FEE_SAT" default:"2000"`
	FeeComputationOnchainPpm     uint64 `envconfig:"FEE_COMPUTATION_ONCHAIN_PPM" default:"1000000"`
	FeeComputationLiquidityPpb   uint64 `envconfig:"FEE_COMPUTATION_LIQUIDITY_PPB" default:"400"`
	ProjectedOnchainCostSat      string `envconfig:"PROJECTED_ONCHAIN_COST_SAT" default:"1000"`
}

// Limits holds the configured order bounds after parsing. Every accepted
// order satisfies min <= value <= max for each bounded field.
type Limits struct {
	MinInitialClientBalanceSat uint64
	MaxInitialClientBalanceSat uint64
	MinInitialLspBalanceSat    uint64
	MaxInitialLspBalanceSat    uint64
	MinChannelBalanceSat       uint64
	MaxChannelBalanceSat       uint64
	MaxChannelExpiryBlocks     uint32
}

// FeeSchedule holds the parsed fee computation knobs.
type FeeSchedule struct {
	BaseFeeSat              uint64
	OnchainPpm              uint64
	LiquidityPpb            uint64
	ProjectedOnchainCostSat uint64
}
