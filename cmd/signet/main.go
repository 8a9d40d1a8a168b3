package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/signet-id/signet/server"
)

var Version = "dev"

func main() {
	app := &cli.App{
		Name:  "signet",
		Usage: "A did and verifiable credential registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				EnvVars: []string{"SIGNET_ADDR"},
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "signet.db",
				EnvVars: []string{"SIGNET_DB_NAME"},
			},
			&cli.StringFlag{
				Name:     "did",
				Required: true,
				EnvVars:  []string{"SIGNET_DID"},
			},
			&cli.StringFlag{
				Name:     "hostname",
				Required: true,
				EnvVars:  []string{"SIGNET_HOSTNAME"},
			},
			&cli.StringFlag{
				Name:     "owner",
				Required: true,
				EnvVars:  []string{"SIGNET_OWNER"},
			},
			&cli.StringFlag{
				Name:     "jwk-path",
				Required: true,
				EnvVars:  []string{"SIGNET_JWK_PATH"},
			},
			&cli.StringFlag{
				Name:     "service-key-path",
				Required: true,
				EnvVars:  []string{"SIGNET_SERVICE_KEY_PATH"},
			},
		},
		Commands: []*cli.Command{
			run,
		},
		ErrWriter: os.Stdout,
		Version:   Version,
	}

	app.Run(os.Args)
}

var run = &cli.Command{
	Name:  "run",
	Usage: "Start the signet registry",
	Flags: []cli.Flag{},
	Action: func(cmd *cli.Context) error {
		s, err := server.New(&server.Args{
			Addr:           cmd.String("addr"),
			DbName:         cmd.String("db-name"),
			Did:            cmd.String("did"),
			Hostname:       cmd.String("hostname"),
			Owner:          cmd.String("owner"),
			JwkPath:        cmd.String("jwk-path"),
			ServiceKeyPath: cmd.String("service-key-path"),
			Version:        Version,
		})
		if err != nil {
			fmt.Printf("error creating signet: %v", err)
			return err
		}

		if err := s.Serve(cmd.Context); err != nil {
			fmt.Printf("error starting signet: %v", err)
			return err
		}

		return nil
	},
}
