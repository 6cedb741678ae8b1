package config

import "os"

func IsDebug() bool {
	return os.Getenv("STREAMSH_DEBUG") == "1"
}
