package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "bridge":
		return bridgeTemplate, nil
	case "page":
		return pageTemplate, nil
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

const bridgeTemplate = `name = "webridge"
addr = "127.0.0.1:8000"
cors_origins = ["http://localhost:3000"]
default_session = "default"
reply_timeout = "60s"
shutdown_grace = "5s"
`

const pageTemplate = `snapshot_html = "<html><body><h1>scripted page</h1></body></html>"
confirm = true
answer = "42"
reply_delay = "0s"
`
