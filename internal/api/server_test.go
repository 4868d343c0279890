package api

import "github.com/wonny/patternscan/pkg/config"

func testServerConfig() *config.Config {
	return &config.Config{Port: "0", Env: "development"}
}
