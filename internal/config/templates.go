package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tracker", "":
		return trackerTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const trackerTemplate = `name = "milestonectl"
addr = ":9300"
cors_origins = ["http://localhost:3000"]
# auth_token = "change-me"

[ledger]
recipient = "0x0000000000000000000000000000000000000001"
donor = "0x0000000000000000000000000000000000000002"
arbitrator = "0x0000000000000000000000000000000000000003"
vaults = ["0x0000000000000000000000000000000000000010"]

[cache]
backend = "memory"
redis_addr = "localhost:6379"
redis_db = 0
ttl = "10m"

[limits]
max_body_bytes = 1048576
max_depth = 16
`
