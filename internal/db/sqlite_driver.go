package db

import (
	"crypto/sha3"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the SQLCipher driver with the store's SQL functions.
	SQLiteDriverName = "sqlite3_lcm_stub"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("token_hash", sqliteTokenHash, true); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "already exists") {
					return nil
				}
				return fmt.Errorf("register token_hash SQL function: %w", err)
			}
			if err := conn.RegisterFunc("format_cents", sqliteFormatCents, true); err != nil {
				return fmt.Errorf("register format_cents SQL function: %w", err)
			}
			return nil
		},
	})
}

// sqliteTokenHash returns the hex SHA3-256 of a session token, so lookups
// never compare plaintext tokens.
func sqliteTokenHash(input any) (string, error) {
	data, err := sqliteValueBytes(input)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// sqliteFormatCents renders integer cents as a two-decimal amount.
func sqliteFormatCents(cents int64) string {
	return FormatCents(cents)
}

// FormatCents renders cents the way the billing list displays amounts.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func sqliteValueBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("unsupported token_hash input type: %T", v)
	}
}
