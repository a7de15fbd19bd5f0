package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"webappauth/auth"
	"webappauth/initdata"
)

func signFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "application secret: sign with the legacy HMAC scheme",
			EnvVars: []string{"WEBAPPAUTH_APP_SECRET"},
		},
		&cli.StringFlag{
			Name:  "private-key",
			Usage: "hex Ed25519 seed or private key: sign with the current scheme",
		},
		&cli.StringFlag{
			Name:  "app-id",
			Usage: "application id (required with --private-key)",
		},
		&cli.Int64Flag{
			Name:     "user-id",
			Usage:    "platform user id",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "username",
			Usage: "platform username",
		},
		&cli.StringFlag{
			Name:  "first-name",
			Usage: "user first name",
			Value: "Test",
		},
		&cli.Int64Flag{
			Name:  "auth-date",
			Usage: "unix timestamp of issuance (default: now)",
		},
		&cli.StringFlag{
			Name:  "query-id",
			Usage: "query_id field",
		},
	}
}

// runSign печатает подписанный init payload
func runSign(cctx *cli.Context) error {
	secret := cctx.String("secret")
	privateKeyHex := cctx.String("private-key")
	if (secret == "") == (privateKeyHex == "") {
		return fmt.Errorf("exactly one of --secret or --private-key must be set")
	}

	authDate := cctx.Int64("auth-date")
	if authDate == 0 {
		authDate = time.Now().Unix()
	}

	fields, err := buildInitFields(initdata.User{
		ID:        cctx.Int64("user-id"),
		FirstName: cctx.String("first-name"),
		Username:  cctx.String("username"),
	}, authDate, cctx.String("query-id"))
	if err != nil {
		return err
	}

	if secret != "" {
		fmt.Fprintln(cctx.App.Writer, auth.SignLegacy(fields, secret))
		return nil
	}

	appID := cctx.String("app-id")
	if appID == "" {
		return fmt.Errorf("--app-id is required with --private-key")
	}
	privateKey, err := auth.ParsePrivateKey(privateKeyHex)
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, auth.SignCurrent(fields, appID, privateKey))
	return nil
}

func buildInitFields(user initdata.User, authDate int64, queryID string) ([]initdata.Field, error) {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}

	var fields []initdata.Field
	if queryID != "" {
		fields = append(fields, initdata.Field{Key: initdata.KeyQueryID, Value: queryID})
	}
	fields = append(fields,
		initdata.Field{Key: initdata.KeyUser, Value: string(userJSON)},
		initdata.Field{Key: initdata.KeyAuthDate, Value: strconv.FormatInt(authDate, 10)},
	)
	return fields, nil
}

// runKeygen печатает новую пару ключей Ed25519 в hex
func runKeygen(cctx *cli.Context) error {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Fprintf(cctx.App.Writer, "public_key:  %s\n", hex.EncodeToString(pub))
	fmt.Fprintf(cctx.App.Writer, "private_key: %s\n", hex.EncodeToString(priv.Seed()))
	return nil
}
