package config

import (
	"fmt"
	"net"
	neturl "net/url"
	"strconv"
	"strings"
)

// DSNValue builds a go-sql-driver DSN unless one was given verbatim.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	params := neturl.Values{}
	for key, value := range c.Params {
		k, v := strings.TrimSpace(key), strings.TrimSpace(value)
		if k != "" && v != "" {
			params.Set(k, v)
		}
	}
	if params.Get("charset") == "" {
		params.Set("charset", orDefault(c.Charset, defaultDBCharset))
	}
	if params.Get("parseTime") == "" {
		params.Set("parseTime", "true")
	}
	if params.Get("loc") == "" {
		params.Set("loc", orDefault(c.Loc, defaultDBLoc))
	}

	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}
	auth := orDefault(c.User, defaultDBUser)
	if c.Password != "" {
		auth += ":" + c.Password
	}

	return fmt.Sprintf("%s@tcp(%s)/%s?%s",
		auth,
		net.JoinHostPort(orDefault(c.Host, defaultDBHost), strconv.Itoa(port)),
		orDefault(c.Name, defaultDBName),
		params.Encode(),
	)
}

func orDefault(v, fallback string) string {
	if t := strings.TrimSpace(v); t != "" {
		return t
	}
	return fallback
}
