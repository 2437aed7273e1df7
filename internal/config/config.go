package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations,
// uint64 for lamport amounts.
type Config struct {
	Env                  string // application environment (e.g. "dev", "prod")
	Port                 string // HTTP port to listen on
	DBUser               string // database username
	DBPass               string // database password (optional)
	DBHost               string // database host address
	DBPort               string // database port number
	DBName               string // database name
	JWTSecret            string // secret used to sign session JWTs
	AccessTTLMin         int    // session token time-to-live in minutes
	AdminKeyHash         string // bcrypt hash of the admin key
	BridgeURL            string // base URL of the wallet bridge sidecar
	CollectionWallet     string // wallet receiving burns and SOL payments
	ReimburseWallet      string // wallet receiving the fixed reimbursement fee
	CollectionID         string // collection identifier passed on NFT transfers
	ServiceFeeLamports   uint64 // flat service fee added to SOL payments
	ReimburseFeeLamports uint64 // flat reimbursement fee sent after payment
	ReserveGraceMin      int    // reservation grace window in minutes
	UseNewLogo           bool   // whether metadata updates apply the new logo
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Fees and the grace
// window have defaults matching the shop's published terms.
func Load() Config {
	return Config{
		Env:                  must("APP_ENV"),      // environment (dev/test/prod)
		Port:                 must("APP_PORT"),     // port to bind the HTTP server
		DBUser:               must("DB_USER"),      // database user
		DBPass:               os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:               must("DB_HOST"),      // database host
		DBPort:               must("DB_PORT"),      // database port
		DBName:               must("DB_NAME"),      // database name
		JWTSecret:            must("JWT_SECRET"),   // secret used for signing JWTs
		AccessTTLMin:         mustInt("ACCESS_TOKEN_TTL_MIN"),
		AdminKeyHash:         must("ADMIN_KEY_HASH"),
		BridgeURL:            must("BRIDGE_URL"),
		CollectionWallet:     must("COLLECTION_WALLET"),
		ReimburseWallet:      must("REIMBURSE_WALLET"),
		CollectionID:         os.Getenv("COLLECTION_ID"),
		ServiceFeeLamports:   envUint64("SERVICE_FEE_LAMPORTS", 10_000_000),   // 0.01 SOL
		ReimburseFeeLamports: envUint64("REIMBURSE_FEE_LAMPORTS", 50_000_000), // 0.05 SOL
		ReserveGraceMin:      envIntDefault("RESERVE_GRACE_MIN", 10),
		UseNewLogo:           os.Getenv("USE_NEW_LOGO") == "true",
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envIntDefault reads an optional integer variable, falling back to def
// when unset.
func envIntDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// envUint64 reads an optional lamport amount, falling back to def when
// unset.  Malformed values are fatal rather than silently zeroed since
// fee amounts are money.
func envUint64(key string, def uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid uint for %s: %q", key, s)
	}
	return n
}
