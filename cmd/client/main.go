package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/pontos/internal/client/cli"
	"github.com/dmitrijs2005/pontos/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := cli.NewApp(cfg, os.Stdin, os.Stdout)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}

}
