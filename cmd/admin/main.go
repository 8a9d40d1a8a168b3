package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"time"

	indigocrypto "github.com/bluesky-social/indigo/atproto/crypto"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/urfave/cli/v2"

	"github.com/signet-id/signet/client"
)

func main() {
	app := cli.App{
		Name: "admin",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service",
				Value:   "http://localhost:8080",
				EnvVars: []string{"SIGNET_SERVICE"},
			},
			&cli.StringFlag{
				Name:    "key-path",
				Usage:   "wallet key used to sign in against the registry",
				EnvVars: []string{"SIGNET_ADMIN_KEY_PATH"},
			},
		},
		Commands: cli.Commands{
			runCreateServiceKey,
			runCreateJwk,
			runCreateWalletKey,
			runStatus,
			runPause,
			runUnpause,
			runAuthorizeIssuer,
			runDeauthorizeIssuer,
			runSetType,
			runRegisterSchema,
			runResolve,
		},
		ErrWriter: os.Stdout,
	}

	app.Run(os.Args)
}

var runCreateServiceKey = &cli.Command{
	Name:  "create-service-key",
	Usage: "creates the k256 signing key for your registry",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "output file for your service key",
		},
	},
	Action: func(cmd *cli.Context) error {
		key, err := indigocrypto.GeneratePrivateKeyK256()
		if err != nil {
			return err
		}

		if err := os.WriteFile(cmd.String("out"), key.Bytes(), 0644); err != nil {
			return err
		}

		return nil
	},
}

var runCreateJwk = &cli.Command{
	Name:  "create-jwk",
	Usage: "creates the private jwk used to sign session tokens",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "output file for your jwk",
		},
	},
	Action: func(cmd *cli.Context) error {
		privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return err
		}

		key, err := jwk.FromRaw(privKey)
		if err != nil {
			return err
		}

		kid := fmt.Sprintf("%d", time.Now().Unix())

		if err := key.Set(jwk.KeyIDKey, kid); err != nil {
			return err
		}

		b, err := json.Marshal(key)
		if err != nil {
			return err
		}

		if err := os.WriteFile(cmd.String("out"), b, 0644); err != nil {
			return err
		}

		return nil
	},
}

var runCreateWalletKey = &cli.Command{
	Name:  "create-wallet-key",
	Usage: "creates a secp256k1 wallet key and prints its address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Required: true,
			Usage:    "output file for your wallet key",
		},
	},
	Action: func(cmd *cli.Context) error {
		key, err := gethcrypto.GenerateKey()
		if err != nil {
			return err
		}

		if err := gethcrypto.SaveECDSA(cmd.String("out"), key); err != nil {
			return err
		}

		fmt.Printf("New wallet key created for address: %s\n", gethcrypto.PubkeyToAddress(key.PublicKey).Hex())

		return nil
	},
}

var runStatus = &cli.Command{
	Name:  "status",
	Usage: "prints the registry status",
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, false)
		if err != nil {
			return err
		}

		status, err := c.Status(cmd.Context)
		if err != nil {
			return err
		}

		b, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(b))

		return nil
	},
}

var runPause = &cli.Command{
	Name:  "pause",
	Usage: "pauses all registry writes",
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		if err := c.Pause(cmd.Context); err != nil {
			return err
		}

		fmt.Println("Registry paused")

		return nil
	},
}

var runUnpause = &cli.Command{
	Name:  "unpause",
	Usage: "resumes registry writes",
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		if err := c.Unpause(cmd.Context); err != nil {
			return err
		}

		fmt.Println("Registry unpaused")

		return nil
	},
}

var runAuthorizeIssuer = &cli.Command{
	Name:  "authorize-issuer",
	Usage: "authorizes an address to issue credentials",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "did",
			Required: true,
		},
	},
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		if err := c.AuthorizeIssuer(cmd.Context, cmd.String("address"), cmd.String("did")); err != nil {
			return err
		}

		fmt.Printf("Issuer %s authorized as %s\n", cmd.String("address"), cmd.String("did"))

		return nil
	},
}

var runDeauthorizeIssuer = &cli.Command{
	Name:  "deauthorize-issuer",
	Usage: "removes an address from the issuer directory",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "address",
			Required: true,
		},
	},
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		if err := c.DeauthorizeIssuer(cmd.Context, cmd.String("address")); err != nil {
			return err
		}

		fmt.Printf("Issuer %s deauthorized\n", cmd.String("address"))

		return nil
	},
}

var runSetType = &cli.Command{
	Name:  "set-type",
	Usage: "marks a credential type as supported or unsupported",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "name",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "supported",
			Value: true,
		},
	},
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		if err := c.SetCredentialType(cmd.Context, cmd.String("name"), cmd.Bool("supported")); err != nil {
			return err
		}

		fmt.Printf("Credential type %s supported=%v\n", cmd.String("name"), cmd.Bool("supported"))

		return nil
	},
}

var runRegisterSchema = &cli.Command{
	Name:  "register-schema",
	Usage: "registers a claim schema from a json file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Required: true,
		},
	},
	Action: func(cmd *cli.Context) error {
		doc, err := os.ReadFile(cmd.String("file"))
		if err != nil {
			return err
		}

		c, err := newClient(cmd, true)
		if err != nil {
			return err
		}

		ref, err := c.RegisterSchema(cmd.Context, doc)
		if err != nil {
			return err
		}

		fmt.Printf("Schema registered: %s\n", ref)

		return nil
	},
}

var runResolve = &cli.Command{
	Name:  "resolve",
	Usage: "resolves a did document",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name: "did",
		},
		&cli.StringFlag{
			Name: "address",
		},
	},
	Action: func(cmd *cli.Context) error {
		c, err := newClient(cmd, false)
		if err != nil {
			return err
		}

		var doc json.RawMessage
		switch {
		case cmd.String("did") != "":
			doc, err = c.Resolve(cmd.Context, cmd.String("did"))
		case cmd.String("address") != "":
			doc, err = c.ResolveAddress(cmd.Context, cmd.String("address"))
		default:
			return fmt.Errorf("either --did or --address is required")
		}
		if err != nil {
			return err
		}

		if b, err := json.MarshalIndent(doc, "", "  "); err == nil {
			doc = b
		}

		fmt.Println(string(doc))

		return nil
	},
}

func newClient(cmd *cli.Context, login bool) (*client.Client, error) {
	args := &client.Args{
		Service: cmd.String("service"),
	}

	if login {
		if cmd.String("key-path") == "" {
			return nil, fmt.Errorf("--key-path is required for this command")
		}

		key, err := gethcrypto.LoadECDSA(cmd.String("key-path"))
		if err != nil {
			return nil, fmt.Errorf("loading wallet key: %w", err)
		}
		args.Key = gethcrypto.FromECDSA(key)
	} else {
		key, err := gethcrypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		args.Key = gethcrypto.FromECDSA(key)
	}

	c, err := client.New(args)
	if err != nil {
		return nil, err
	}

	if login {
		if err := c.Login(cmd.Context); err != nil {
			return nil, fmt.Errorf("signing in: %w", err)
		}
	}

	return c, nil
}
