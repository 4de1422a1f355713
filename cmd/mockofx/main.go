package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/johnstarich/ofxprobe/server"
	"go.uber.org/zap"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "Address to listen on")
	flag.Parse()

	if err := run(*addr); err != nil {
		fmt.Fprintln(os.Stderr, "Error running mock OFX server:", err.Error())
		os.Exit(1)
	}
}

func run(addr string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)
	return server.Run(addr, logger)
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("DEVELOPMENT") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
