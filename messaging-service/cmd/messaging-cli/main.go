// Command messaging-cli tails the messaging realtime stream.
//
//	messaging-cli tail -url ws://localhost:8091/ws/messages -token $TOKEN -conversations k1,k2
//
// With -secret instead of -token it mints a short-lived token for -user,
// which is handy against a local server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quy-trach/TaskManagement-sub000/messaging-service/internal/wsclient"
	"github.com/quy-trach/TaskManagement-sub000/pkg/jwt"
	pkglog "github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s tail [flags]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 || os.Args[1] != "tail" {
		usage()
	}

	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8091/ws/messages", "realtime endpoint")
	token := fs.String("token", os.Getenv("MESSAGING_TOKEN"), "access token")
	secret := fs.String("secret", "", "jwt secret used to mint a token when -token is empty")
	issuer := fs.String("issuer", "task-tracker", "jwt issuer for minted tokens")
	user := fs.String("user", "", "user id for a minted token")
	role := fs.String("role", "Staff", "role for a minted token")
	dept := fs.Int64("dept", 0, "department id for a minted token (0 for none)")
	conversations := fs.String("conversations", "", "comma-separated conversation ids to join")
	maxAttempts := fs.Int("max-attempts", 0, "give up after this many failed dials (0 retries forever)")
	verbose := fs.Bool("v", false, "debug logging")
	fs.Parse(os.Args[2:])

	level := "info"
	if *verbose {
		level = "debug"
	}
	pkglog.Init(pkglog.Config{Level: level, Pretty: true, ServiceName: "messaging-cli"})
	logger := pkglog.L()

	if *token == "" {
		if *secret == "" || *user == "" {
			logger.Fatal().Msg("either -token or both -secret and -user are required")
		}
		minted, err := mintToken(*secret, *issuer, *user, *role, *dept)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to mint token")
		}
		*token = minted
	}

	client := wsclient.New(wsclient.Config{
		URL:         *url,
		Token:       *token,
		MaxAttempts: *maxAttempts,
		OnStateChange: func(s wsclient.State) {
			logger.Info().Str("state", s.String()).Msg("realtime state changed")
		},
	})
	for _, id := range strings.Split(*conversations, ",") {
		if id = strings.TrimSpace(id); id != "" {
			client.Join(id)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		for frame := range client.Frames() {
			fmt.Println(string(frame))
		}
	}()

	if err := client.Run(pkglog.WithLogger(ctx, logger)); err != nil {
		logger.Fatal().Err(err).Msg("realtime client stopped")
	}
}

func mintToken(secret, issuer, userID, role string, dept int64) (string, error) {
	manager, err := jwt.NewManager(secret, issuer, time.Hour)
	if err != nil {
		return "", err
	}
	id := jwt.Identity{UserID: userID, Username: userID, Role: role}
	if dept != 0 {
		id.DepartmentID = &dept
	}
	token, _, err := manager.GenerateAccessToken(id)
	return token, err
}
