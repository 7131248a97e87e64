package main

import (
	"flag"

	"taskboard-api/internal/taskboard"
)

func main() {
	confPath := flag.String("config", ".env", "path to the env configuration file")
	flag.Parse()

	taskboard.InitAndServe(*confPath)
}
